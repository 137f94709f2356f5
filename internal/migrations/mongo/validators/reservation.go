package validators

import "go.mongodb.org/mongo-driver/bson"

var ReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"club_id",
			"requester_id",
			"resource_id",
			"date",
			"start_min",
			"end_min",
			"starts_at",
			"ends_at",
			"status",
			"source",
			"created_at",
			"updated_at",
		},
		"additionalProperties": true,

		"properties": merge(timeSlotFields, bson.M{
			"_id":          idField,
			"club_id":      idField,
			"requester_id": idField,

			"starts_at": bson.M{"bsonType": "date"},
			"ends_at":   bson.M{"bsonType": "date"},

			"status": bson.M{
				"enum": []string{"pending", "confirmed", "cancelled", "completed", "no_show"},
			},
			"source": bson.M{
				"enum": []string{"member", "tournament", "season_pass"},
			},

			"request_key": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 128,
			},
			"entitlement_id":   idField,
			"discount_percent": percentField,
			"tournament_id":    idField,
			"season_pass_id":   idField,

			"hold_expires_at": bson.M{"bsonType": "date"},
			"confirmed_at":    bson.M{"bsonType": "date"},
			"cancelled_at":    bson.M{"bsonType": "date"},
			"created_at":      bson.M{"bsonType": "date"},
			"updated_at":      bson.M{"bsonType": "date"},
		}),
	},
}

var ReservationGuardValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "version"},
		"properties": bson.M{
			"_id": bson.M{"bsonType": "string"},
			"version": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},
		},
	},
}
