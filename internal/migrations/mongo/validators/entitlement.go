package validators

import "go.mongodb.org/mongo-driver/bson"

var EntitlementValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"club_id", "user_id", "kind", "valid_from", "valid_until", "access"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":     idField,
			"club_id": idField,
			"user_id": idField,
			"kind": bson.M{
				"enum": []string{"membership", "season_pass"},
			},
			"valid_from":  isoDateField,
			"valid_until": isoDateField,

			"access": bson.M{
				"bsonType": "object",
				"required": []string{"kind"},
				"properties": bson.M{
					"kind": bson.M{
						"enum": []string{"unrestricted", "restricted"},
					},
					"windows": bson.M{
						"bsonType": "array",
						"items": bson.M{
							"bsonType": "object",
							"required": []string{"weekdays", "start_min", "end_min"},
							"properties": bson.M{
								"weekdays": bson.M{
									"bsonType": "array",
									"minItems": 1,
									"items":    weekdayField,
								},
								"start_min": minuteField,
								"end_min":   minuteField,
							},
						},
					},
				},
			},

			"resource_ids": bson.M{
				"bsonType": "array",
				"items":    idField,
			},
			"max_active_bookings": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
				"maximum":  100,
			},
			"discount_percent": percentField,
			"season_pass_id":   idField,
			"created_at":       bson.M{"bsonType": "date"},
		},
	},
}
