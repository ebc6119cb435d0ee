package validators

import "go.mongodb.org/mongo-driver/bson"

var ReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"community_id",
			"amenity_id",
			"user_id",
			"date",
			"setup_start",
			"setup_end",
			"party_start",
			"party_end",
			"guest_count",
			"event_name",
			"status",
			"created_at",
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

			"amenity_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"date": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"setup_start": bson.M{
				"bsonType": "date",
			},

			"setup_end": bson.M{
				"bsonType": "date",
			},

			"party_start": bson.M{
				"bsonType": "date",
			},

			"party_end": bson.M{
				"bsonType": "date",
			},

			"cleaning_start": bson.M{
				"bsonType": []string{"date", "null"},
			},

			"cleaning_end": bson.M{
				"bsonType": []string{"date", "null"},
			},

			"guest_count": bson.M{
				"bsonType": "int",
				"minimum":  1,
			},

			"event_name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"private": bson.M{
				"bsonType": "bool",
			},

			"special_requirements": bson.M{
				"bsonType":  "string",
				"maxLength": 1000,
			},

			"total_fee": bson.M{
				"bsonType": "number",
				"minimum":  0,
			},

			"total_deposit": bson.M{
				"bsonType": "number",
				"minimum":  0,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"new",
					"janitorial_approved",
					"fully_approved",
					"cancelled",
					"completed",
				},
			},

			"damage": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"assessed": bson.M{"bsonType": "bool"},
					"pending":  bson.M{"bsonType": "bool"},
					"status": bson.M{
						"bsonType": "string",
						"enum": []string{
							"pending",
							"approved",
							"adjusted",
							"denied",
						},
					},
					"reported_charge": bson.M{"bsonType": "number", "minimum": 0},
					"final_charge":    bson.M{"bsonType": []string{"number", "null"}},
				},
			},

			"modification": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"status": bson.M{
						"bsonType": "string",
						"enum": []string{
							"none",
							"pending",
							"accepted",
							"rejected",
						},
					},
					"count": bson.M{"bsonType": "int", "minimum": 0},
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
