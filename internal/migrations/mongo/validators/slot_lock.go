package validators

import "go.mongodb.org/mongo-driver/bson"

// Slot lock IDs encode the slot coordinates, so the unique _id index is
// what actually enforces mutual exclusion.
var SlotLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"expires_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"expires_at": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
