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
)

const (
	ContainersCollection = "EventContainers"
)

type ContainerRepository interface {
	FindByID(ctx context.Context, id string) (*model.EventContainer, error)
	SetStatus(ctx context.Context, id string, status model.ContainerStatus) error
}

type mongoContainerRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoContainerRepository(cfg *config.Config) ContainerRepository {
	return &mongoContainerRepository{
		cfg:        cfg,
		collection: cfg.Database().Collection(ContainersCollection),
	}
}

func (r *mongoContainerRepository) FindByID(ctx context.Context, id string) (*model.EventContainer, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", scheduleerrors.ErrInvalidID, id)
	}

	var container model.EventContainer
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&container)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", scheduleerrors.ErrContainerNotFound, id)
		}
		return nil, fmt.Errorf("failed to find container: %w", err)
	}
	return &container, nil
}

func (r *mongoContainerRepository) SetStatus(ctx context.Context, id string, status model.ContainerStatus) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", scheduleerrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC().Truncate(time.Millisecond)}},
	)
	if err != nil {
		return fmt.Errorf("failed to update container status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", scheduleerrors.ErrContainerNotFound, id)
	}
	return nil
}
