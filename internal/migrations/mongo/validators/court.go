package validators

import "go.mongodb.org/mongo-driver/bson"

var CourtValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "club_id", "name", "surface", "active"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":     idField,
			"club_id": idField,
			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 80,
			},
			"surface": bson.M{
				"enum": []string{"clay", "hard", "grass", "carpet"},
			},
			"indoor":     bson.M{"bsonType": "bool"},
			"active":     bson.M{"bsonType": "bool"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
