package validators

import "go.mongodb.org/mongo-driver/bson"

var EventContainerValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"venue_id", "year", "month", "status"},
		"additionalProperties": true,
		"properties": bson.M{
			"venue_id": bson.M{"bsonType": "string", "minLength": 1},
			"year":     bson.M{"bsonType": []string{"int", "long"}, "minimum": 2000},
			"month":    bson.M{"bsonType": []string{"int", "long"}, "minimum": 1, "maximum": 12},
			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"editing", "published"},
			},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}

var EventValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"container_id",
			"venue_id",
			"class_type_id",
			"start_time",
			"end_time",
			"week_of_month",
			"status",
		},
		"additionalProperties": true,
		"properties": bson.M{
			"container_id":  bson.M{"bsonType": "string", "minLength": 1},
			"host_user_id":  bson.M{"bsonType": "string"},
			"venue_id":      bson.M{"bsonType": "string", "minLength": 1},
			"class_type_id": bson.M{"bsonType": "string", "minLength": 1},
			"start_time":    bson.M{"bsonType": "date"},
			"end_time":      bson.M{"bsonType": "date"},
			"week_of_month": bson.M{"bsonType": []string{"int", "long"}, "minimum": 1, "maximum": 6},
			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"editing", "locked"},
			},
			"is_deleted":   bson.M{"bsonType": "bool"},
			"is_published": bson.M{"bsonType": "bool"},
			"external_ref": bson.M{"bsonType": "string"},
		},
	},
}

var IssueValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"type", "event_id", "container_id", "week_of_month", "status", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"type": bson.M{
				"bsonType": "string",
				"enum": []string{
					"NO_COACH",
					"NONEXISTENT_COACH",
					"UNCONFIGURED_COACH",
					"UNAVAILABLE_CLASS",
					"UNAVAILABLE_VENUE",
					"UNAVAILABLE_TIME",
					"CONFLICTING_TIME",
				},
			},
			"event_id":      bson.M{"bsonType": "string", "minLength": 1},
			"container_id":  bson.M{"bsonType": "string", "minLength": 1},
			"week_of_month": bson.M{"bsonType": []string{"int", "long"}, "minimum": 1, "maximum": 6},
			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"unrepaired", "repaired"},
			},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
