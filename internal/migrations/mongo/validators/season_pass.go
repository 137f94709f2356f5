package validators

import "go.mongodb.org/mongo-driver/bson"

var SeasonPassValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"club_id",
			"holder_id",
			"resource_id",
			"weekday",
			"start_min",
			"end_min",
			"valid_from",
			"valid_until",
			"status",
		},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":              idField,
			"club_id":          idField,
			"holder_id":        idField,
			"resource_id":      idField,
			"weekday":          weekdayField,
			"start_min":        minuteField,
			"end_min":          minuteField,
			"valid_from":       isoDateField,
			"valid_until":      isoDateField,
			"discount_percent": percentField,
			"entitlement_id":   idField,
			"status": bson.M{
				"enum": []string{"active", "revoked"},
			},
			"entries": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"date", "outcome"},
					"properties": bson.M{
						"date":           isoDateField,
						"reservation_id": idField,
						"outcome": bson.M{
							"enum": []string{"booked", "conflict", "released"},
						},
					},
				},
			},
			"created_at": bson.M{"bsonType": "date"},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}
