package validators

import "go.mongodb.org/mongo-driver/bson"

var SiteValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"name", "created_at"},

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 255,
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

var TypeValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"name", "requires_return", "requires_location", "created_at"},

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 255,
			},

			"color": bson.M{
				"bsonType": "string",
			},

			"requires_return": bson.M{
				"bsonType": "bool",
			},

			"requires_location": bson.M{
				"bsonType": "bool",
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
