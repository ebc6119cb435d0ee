package validators

import "go.mongodb.org/mongo-driver/bson"

var AmenityValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"community_id",
			"name",
			"capacity",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"community_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"capacity": bson.M{
				"bsonType": "int",
				"minimum":  1,
			},

			"fee": bson.M{
				"bsonType": "number",
				"minimum":  0,
			},

			"deposit": bson.M{
				"bsonType": "number",
				"minimum":  0,
			},

			"janitorial_required": bson.M{
				"bsonType": "bool",
			},

			"approval_required": bson.M{
				"bsonType": "bool",
			},

			"cancellation_policy": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"enabled":   bson.M{"bsonType": "bool"},
					"admin_fee": bson.M{"bsonType": "number", "minimum": 0},
					"late_fee_type": bson.M{
						"bsonType": "string",
						"enum":     []string{"forfeit", "fixed"},
					},
					"late_fee": bson.M{"bsonType": "number", "minimum": 0},
				},
			},

			"modification_policy": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"enabled":               bson.M{"bsonType": "bool"},
					"additional_change_fee": bson.M{"bsonType": "number", "minimum": 0},
				},
			},
		},
	},
}
