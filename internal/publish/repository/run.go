package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	publisherrors "roster/internal/publish/errors"
	"roster/pkg/config"
	mongotx "roster/pkg/db/mongo"
	"roster/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	PublishRunsCollection = "PublishRuns"
)

// PublishRunRepository stores publish runs. Every status or counter change is a single
// conditional update, so concurrent workers never lose an increment and a run only moves
// forward through its states.
type PublishRunRepository interface {
	Create(ctx context.Context, run *model.PublishRun) error
	FindByID(ctx context.Context, id string) (*model.PublishRun, error)
	// FindActive returns the non-terminal run of a container.
	FindActive(ctx context.Context, containerID string) (*model.PublishRun, error)
	StartRemoval(ctx context.Context, id string) (*model.PublishRun, error)
	FinishRemoval(ctx context.Context, id string, found, removed int) (*model.PublishRun, error)
	StartPublishing(ctx context.Context, id string, totalSessions int) (*model.PublishRun, error)
	// RecordSession adds eventID to the processed set and bumps the matching counter.
	// It fails with ErrInvalidTransition when the run is not publishing or the event was
	// already recorded.
	RecordSession(ctx context.Context, id, eventID string, success bool) (*model.PublishRun, error)
	// Complete finishes a publishing run once every session is processed.
	Complete(ctx context.Context, id string) (*model.PublishRun, error)
	Fail(ctx context.Context, id, reason string) (*model.PublishRun, error)
}

type mongoPublishRunRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPublishRunRepository(cfg *config.Config) PublishRunRepository {
	return &mongoPublishRunRepository{
		cfg:        cfg,
		collection: cfg.Database().Collection(PublishRunsCollection),
	}
}

func (r *mongoPublishRunRepository) Create(ctx context.Context, run *model.PublishRun) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now
	if run.ProcessedSessionIDs == nil {
		run.ProcessedSessionIDs = []string{}
	}

	if _, err := r.collection.InsertOne(ctx, run); err != nil {
		return fmt.Errorf("failed to create publish run: %w", err)
	}
	return nil
}

func (r *mongoPublishRunRepository) FindByID(ctx context.Context, id string) (*model.PublishRun, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	return r.findOne(ctx, bson.M{"_id": id}, id)
}

func (r *mongoPublishRunRepository) FindActive(ctx context.Context, containerID string) (*model.PublishRun, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"container_id": containerID,
		"status":       bson.M{"$in": model.ActivePublishStatuses},
	}
	return r.findOne(ctx, filter, "active run of container "+containerID)
}

func (r *mongoPublishRunRepository) findOne(ctx context.Context, filter bson.M, what string) (*model.PublishRun, error) {
	var run model.PublishRun
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	err := r.collection.FindOne(ctx, filter, opts).Decode(&run)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", publisherrors.ErrRunNotFound, what)
		}
		return nil, fmt.Errorf("failed to find publish run: %w", err)
	}
	return &run, nil
}

func (r *mongoPublishRunRepository) StartRemoval(ctx context.Context, id string) (*model.PublishRun, error) {
	return r.transition(ctx, id, []model.PublishStatus{model.PublishStatusPending}, bson.M{
		"$set": bson.M{"status": model.PublishStatusRemoving},
	})
}

func (r *mongoPublishRunRepository) FinishRemoval(ctx context.Context, id string, found, removed int) (*model.PublishRun, error) {
	return r.transition(ctx, id, []model.PublishStatus{model.PublishStatusRemoving}, bson.M{
		"$set": bson.M{
			"status":             model.PublishStatusRemoved,
			"old_bookings_found": found,
			"removed":            removed,
		},
	})
}

func (r *mongoPublishRunRepository) StartPublishing(ctx context.Context, id string, totalSessions int) (*model.PublishRun, error) {
	return r.transition(ctx, id, []model.PublishStatus{model.PublishStatusRemoved}, bson.M{
		"$set": bson.M{
			"status":         model.PublishStatusPublishing,
			"total_sessions": totalSessions,
		},
	})
}

func (r *mongoPublishRunRepository) RecordSession(ctx context.Context, id, eventID string, success bool) (*model.PublishRun, error) {
	counter := "failed"
	if success {
		counter = "succeeded"
	}

	filter := bson.M{
		"_id":                   id,
		"status":                model.PublishStatusPublishing,
		"processed_session_ids": bson.M{"$ne": eventID},
	}
	update := bson.M{
		"$addToSet": bson.M{"processed_session_ids": eventID},
		"$inc":      bson.M{counter: 1},
	}
	return r.update(ctx, id, filter, update)
}

func (r *mongoPublishRunRepository) Complete(ctx context.Context, id string) (*model.PublishRun, error) {
	filter := bson.M{
		"_id":    id,
		"status": model.PublishStatusPublishing,
		"$expr": bson.M{"$gte": bson.A{
			bson.M{"$size": "$processed_session_ids"},
			"$total_sessions",
		}},
	}
	update := bson.M{"$set": bson.M{
		"status":       model.PublishStatusCompleted,
		"completed_at": time.Now().UTC(),
	}}
	return r.update(ctx, id, filter, update)
}

func (r *mongoPublishRunRepository) Fail(ctx context.Context, id, reason string) (*model.PublishRun, error) {
	return r.transition(ctx, id, model.ActivePublishStatuses, bson.M{
		"$set": bson.M{
			"status":       model.PublishStatusFailed,
			"error":        reason,
			"completed_at": time.Now().UTC(),
		},
	})
}

func (r *mongoPublishRunRepository) transition(ctx context.Context, id string, from []model.PublishStatus, update bson.M) (*model.PublishRun, error) {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": from},
	}
	return r.update(ctx, id, filter, update)
}

func (r *mongoPublishRunRepository) update(ctx context.Context, id string, filter, update bson.M) (*model.PublishRun, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set, _ := update["$set"].(bson.M)
	if set == nil {
		set = bson.M{}
		update["$set"] = set
	}
	set["updated_at"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var run model.PublishRun
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&run)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: run %s", publisherrors.ErrInvalidTransition, id)
		}
		return nil, fmt.Errorf("failed to update publish run: %w", err)
	}
	return &run, nil
}
