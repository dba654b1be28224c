package validators

import "go.mongodb.org/mongo-driver/bson"

var PublishRunValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "container_id", "status", "total_sessions", "succeeded", "failed", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":          bson.M{"bsonType": "string"},
			"container_id": bson.M{"bsonType": "string", "minLength": 1},
			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"PENDING", "REMOVING", "REMOVED", "PUBLISHING", "COMPLETED", "FAILED"},
			},
			"total_sessions":        bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"processed_session_ids": bson.M{"bsonType": []string{"array", "null"}, "items": bson.M{"bsonType": "string"}},
			"succeeded":             bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"failed":                bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"old_bookings_found":    bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"removed":               bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"created_at":            bson.M{"bsonType": "date"},
			"updated_at":            bson.M{"bsonType": "date"},
			"completed_at":          bson.M{"bsonType": "date"},
		},
	},
}

var BookingLogValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "run_id", "container_id", "function", "success", "outcome", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":          bson.M{"bsonType": "string"},
			"run_id":       bson.M{"bsonType": "string", "minLength": 1},
			"container_id": bson.M{"bsonType": "string", "minLength": 1},
			"function":     bson.M{"bsonType": "string", "minLength": 1},
			"success":      bson.M{"bsonType": "bool"},
			"outcome": bson.M{
				"bsonType": "string",
				"enum":     []string{"created", "updated", "ended", "cancelled", "unchanged", "blocked", "failed", "skipped"},
			},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}

var PublishLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "container_id", "run_id", "expires_at"},
		"additionalProperties": false,
		"properties": bson.M{
			"_id":          bson.M{"bsonType": "string"},
			"container_id": bson.M{"bsonType": "string", "minLength": 1},
			"run_id":       bson.M{"bsonType": "string", "minLength": 1},
			"expires_at":   bson.M{"bsonType": "date"},
			"created_at":   bson.M{"bsonType": "date"},
		},
	},
}
