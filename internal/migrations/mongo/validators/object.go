package validators

import "go.mongodb.org/mongo-driver/bson"

var ObjectValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"site_id",
			"type_id",
			"visible",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 255,
			},

			"description": bson.M{
				"bsonType": "string",
			},

			"site_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"type_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"visible": bson.M{
				"bsonType": "bool",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"available", "reserved", "offsite"},
			},

			"location": bson.M{
				"bsonType": "string",
			},

			"availability": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"enabled": bson.M{"bsonType": "bool"},
					"from":    bson.M{"bsonType": "date"},
					"to":      bson.M{"bsonType": "date"},
					"slots": bson.M{
						"bsonType": "array",
						"items": bson.M{
							"bsonType": "object",
							"required": []string{"start_minute", "end_minute"},
							"properties": bson.M{
								"start_minute": bson.M{
									"bsonType": "int",
									"minimum":  0,
									"maximum":  1439,
								},
								"end_minute": bson.M{
									"bsonType": "int",
									"minimum":  1,
									"maximum":  1439,
								},
							},
						},
					},
				},
			},

			"created_by": bson.M{
				"bsonType": "string",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"modified_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
