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
)

const (
	PublishLocksCollection = "PublishLocks"
)

// PublishLockRepository provides the per-container admission lock. The lock _id is
// derived from the container id, so a second Acquire fails on the unique _id index.
type PublishLockRepository interface {
	// Acquire returns ErrLockHeld while an unexpired lock exists for the container.
	Acquire(ctx context.Context, containerID, runID string, ttl time.Duration) (*model.PublishLock, error)
	Find(ctx context.Context, containerID string) (*model.PublishLock, error)
	// Release deletes the lock only if runID still owns it.
	Release(ctx context.Context, containerID, runID string) error
}

type mongoPublishLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPublishLockRepository(cfg *config.Config) PublishLockRepository {
	return &mongoPublishLockRepository{
		cfg:        cfg,
		collection: cfg.Database().Collection(PublishLocksCollection),
	}
}

func (r *mongoPublishLockRepository) Acquire(ctx context.Context, containerID, runID string, ttl time.Duration) (*model.PublishLock, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	lock := &model.PublishLock{
		ID:          model.PublishLockID(containerID),
		ContainerID: containerID,
		RunID:       runID,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}

	_, err := r.collection.InsertOne(ctx, lock)
	if err == nil {
		return lock, nil
	}
	if !mongotx.IsDuplicateKey(err) {
		return nil, fmt.Errorf("failed to acquire publish lock: %w", err)
	}

	// The TTL monitor only runs periodically, so an expired lock can still be present.
	res, err := r.collection.DeleteOne(ctx, bson.M{
		"_id":        lock.ID,
		"expires_at": bson.M{"$lte": now},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clear expired publish lock: %w", err)
	}
	if res.DeletedCount == 0 {
		return nil, fmt.Errorf("%w: container %s", publisherrors.ErrLockHeld, containerID)
	}

	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongotx.IsDuplicateKey(err) {
			return nil, fmt.Errorf("%w: container %s", publisherrors.ErrLockHeld, containerID)
		}
		return nil, fmt.Errorf("failed to acquire publish lock: %w", err)
	}
	return lock, nil
}

func (r *mongoPublishLockRepository) Find(ctx context.Context, containerID string) (*model.PublishLock, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var lock model.PublishLock
	err := r.collection.FindOne(ctx, bson.M{"_id": model.PublishLockID(containerID)}).Decode(&lock)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: container %s", publisherrors.ErrLockNotFound, containerID)
		}
		return nil, fmt.Errorf("failed to find publish lock: %w", err)
	}
	return &lock, nil
}

func (r *mongoPublishLockRepository) Release(ctx context.Context, containerID, runID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.DeleteOne(ctx, bson.M{
		"_id":    model.PublishLockID(containerID),
		"run_id": runID,
	})
	if err != nil {
		return fmt.Errorf("failed to release publish lock: %w", err)
	}
	return nil
}
