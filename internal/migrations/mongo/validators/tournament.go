package validators

import "go.mongodb.org/mongo-driver/bson"

var TournamentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"club_id", "name", "organizer_id", "format", "blocks", "status", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":          idField,
			"club_id":      idField,
			"organizer_id": idField,
			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 120,
			},
			"format": bson.M{
				"bsonType": "object",
				"required": []string{"kind"},
				"properties": bson.M{
					"kind": bson.M{
						"enum": []string{"knockout", "round_robin"},
					},
				},
			},
			"blocks": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"maxItems": 200,
				"items": bson.M{
					"bsonType":   "object",
					"required":   []string{"resource_id", "date", "start_min", "end_min"},
					"properties": timeSlotFields,
				},
			},
			"status": bson.M{
				"enum": []string{"draft", "scheduled", "cancelled"},
			},
			"reservation_ids": bson.M{
				"bsonType": "array",
				"items":    idField,
			},
			"created_at": bson.M{"bsonType": "date"},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}
