package validators

import "go.mongodb.org/mongo-driver/bson"

var (
	idField = bson.M{
		"bsonType":  "string",
		"minLength": 1,
		"maxLength": 64,
	}

	isoDateField = bson.M{
		"bsonType": "string",
		"pattern":  `^\d{4}-\d{2}-\d{2}$`,
	}

	// Minutes since local midnight. The driver writes Go ints as int32 when
	// they fit, but older documents may carry int64.
	minuteField = bson.M{
		"bsonType": []string{"int", "long"},
		"minimum":  0,
		"maximum":  1440,
	}

	percentField = bson.M{
		"bsonType": []string{"int", "long"},
		"minimum":  0,
		"maximum":  100,
	}

	weekdayField = bson.M{
		"enum": []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"},
	}

	timeSlotFields = bson.M{
		"resource_id": idField,
		"date":        isoDateField,
		"start_min":   minuteField,
		"end_min":     minuteField,
	}
)

func merge(maps ...bson.M) bson.M {
	out := bson.M{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}
