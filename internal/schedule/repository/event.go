package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	scheduleerrors "roster/internal/schedule/errors"
	"roster/pkg/config"
	mongotx "roster/pkg/db/mongo"
	"roster/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	EventsCollection = "Events"
)

// EventRepository reads events and records their publish state. Event authoring
// happens elsewhere.
type EventRepository interface {
	FindByID(ctx context.Context, id string) (*model.Event, error)
	// FindEditable returns the non-deleted, non-locked events of a container week still in editing.
	FindEditable(ctx context.Context, containerID string, weekOfMonth int) ([]*model.Event, error)
	// FindPublishable returns every non-deleted, non-locked event of a container.
	FindPublishable(ctx context.Context, containerID string) ([]*model.Event, error)
	FindLocked(ctx context.Context, containerID string) ([]*model.Event, error)
	// FindByHostsInRange returns non-deleted events of the hosts that intersect [from, to).
	FindByHostsInRange(ctx context.Context, hostIDs []string, from, to time.Time) ([]*model.Event, error)
	// CountAssigned counts non-deleted events per host within a period.
	CountAssigned(ctx context.Context, hostIDs []string, period model.Period) (map[string]int, error)
	MarkPublished(ctx context.Context, id, externalRef, runID string) error
}

type mongoEventRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoEventRepository(cfg *config.Config) EventRepository {
	return &mongoEventRepository{
		cfg:        cfg,
		collection: cfg.Database().Collection(EventsCollection),
	}
}

func (r *mongoEventRepository) FindByID(ctx context.Context, id string) (*model.Event, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", scheduleerrors.ErrInvalidID, id)
	}

	var event model.Event
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", scheduleerrors.ErrEventNotFound, id)
		}
		return nil, fmt.Errorf("failed to find event: %w", err)
	}
	return &event, nil
}

func activeFilter(containerID string) bson.M {
	return bson.M{
		"container_id": containerID,
		"is_deleted":   bson.M{"$ne": true},
		"status":       bson.M{"$ne": model.EventStatusLocked},
	}
}

func (r *mongoEventRepository) FindEditable(ctx context.Context, containerID string, weekOfMonth int) ([]*model.Event, error) {
	filter := activeFilter(containerID)
	filter["week_of_month"] = weekOfMonth
	filter["status"] = model.EventStatusEditing
	return r.find(ctx, filter)
}

func (r *mongoEventRepository) FindPublishable(ctx context.Context, containerID string) ([]*model.Event, error) {
	return r.find(ctx, activeFilter(containerID))
}

func (r *mongoEventRepository) FindLocked(ctx context.Context, containerID string) ([]*model.Event, error) {
	return r.find(ctx, bson.M{
		"container_id": containerID,
		"is_deleted":   bson.M{"$ne": true},
		"status":       model.EventStatusLocked,
	})
}

func (r *mongoEventRepository) FindByHostsInRange(ctx context.Context, hostIDs []string, from, to time.Time) ([]*model.Event, error) {
	if len(hostIDs) == 0 {
		return []*model.Event{}, nil
	}
	return r.find(ctx, bson.M{
		"host_user_id": bson.M{"$in": hostIDs},
		"is_deleted":   bson.M{"$ne": true},
		"start_time":   bson.M{"$lt": to},
		"end_time":     bson.M{"$gt": from},
	})
}

func (r *mongoEventRepository) find(ctx context.Context, filter bson.M) ([]*model.Event, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer cursor.Close(ctx)

	events := []*model.Event{}
	if err = cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

func (r *mongoEventRepository) CountAssigned(ctx context.Context, hostIDs []string, period model.Period) (map[string]int, error) {
	counts := make(map[string]int, len(hostIDs))
	if len(hostIDs) == 0 {
		return counts, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"host_user_id":  bson.M{"$in": hostIDs},
			"is_deleted":    bson.M{"$ne": true},
			"year":          period.Year,
			"month":         period.Month,
			"week_of_month": period.WeekOfMonth,
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$host_user_id",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count assigned events: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		HostID string `bson:"_id"`
		Count  int    `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode assigned counts: %w", err)
	}

	for _, row := range rows {
		counts[row.HostID] = row.Count
	}
	return counts, nil
}

func (r *mongoEventRepository) MarkPublished(ctx context.Context, id, externalRef, runID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", scheduleerrors.ErrInvalidID, id)
	}

	set := bson.M{
		"is_published":     true,
		"published_run_id": runID,
		"updated_at":       time.Now().UTC().Truncate(time.Millisecond),
	}
	if externalRef != "" {
		set["external_ref"] = externalRef
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to mark event published: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", scheduleerrors.ErrEventNotFound, id)
	}
	return nil
}
