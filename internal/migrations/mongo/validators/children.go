package validators

import "go.mongodb.org/mongo-driver/bson"

var ActiveUserValidator = childValidator("lastUpdate")

var MessageValidator = childValidator("timestamp")

// childValidator requires the owning space and the timestamp the sweeper
// compares against. Documents without it would never expire.
func childValidator(timestampField string) bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType":             "object",
			"required":             []string{"spaceId", timestampField},
			"additionalProperties": true,

			"properties": bson.M{
				"spaceId": bson.M{
					"bsonType":  "string",
					"minLength": 1,
				},

				timestampField: bson.M{
					"bsonType": "date",
				},
			},
		},
	}
}

var MaintenanceLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"holder", "startedAt", "expiresAt"},

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},
			"holder": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"startedAt": bson.M{
				"bsonType": "date",
			},
			"expiresAt": bson.M{
				"bsonType": "date",
			},
		},
	},
}
