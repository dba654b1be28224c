package repository

import (
	"context"
	"fmt"
	"time"

	"roster/pkg/config"
	mongotx "roster/pkg/db/mongo"
	"roster/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	AvailabilityCollection = "AvailabilitySlots"
)

type AvailabilityRepository interface {
	// FindSlots returns the slots of the users at the venue that intersect [start, end).
	FindSlots(ctx context.Context, userIDs []string, venueID string, start, end time.Time) ([]*model.AvailabilitySlot, error)
	// MarkCheckedIn consumes the usable slots of a user covering [start, end) for an event.
	MarkCheckedIn(ctx context.Context, userID, venueID string, start, end time.Time, eventID string) (int64, error)
}

type mongoAvailabilityRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoAvailabilityRepository(cfg *config.Config) AvailabilityRepository {
	return &mongoAvailabilityRepository{
		cfg:        cfg,
		collection: cfg.Database().Collection(AvailabilityCollection),
	}
}

func (r *mongoAvailabilityRepository) FindSlots(ctx context.Context, userIDs []string, venueID string, start, end time.Time) ([]*model.AvailabilitySlot, error) {
	if len(userIDs) == 0 {
		return []*model.AvailabilitySlot{}, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"user_id":    bson.M{"$in": userIDs},
		"venue_ids":  venueID,
		"start_time": bson.M{"$lt": end},
		"end_time":   bson.M{"$gt": start},
	}
	opts := options.Find().SetSort(bson.D{{Key: "user_id", Value: 1}, {Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}
	defer cursor.Close(ctx)

	slots := []*model.AvailabilitySlot{}
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode availability: %w", err)
	}
	return slots, nil
}

func (r *mongoAvailabilityRepository) MarkCheckedIn(ctx context.Context, userID, venueID string, start, end time.Time, eventID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"user_id":    userID,
		"venue_ids":  venueID,
		"usable":     true,
		"start_time": bson.M{"$lt": end},
		"end_time":   bson.M{"$gt": start},
		"$or": bson.A{
			bson.M{"checked_in": bson.M{"$ne": true}},
			bson.M{"event_id": eventID},
		},
	}
	update := bson.M{"$set": bson.M{"checked_in": true, "event_id": eventID}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to check in availability: %w", err)
	}
	return result.ModifiedCount, nil
}
