package repository

import (
	"context"
	"errors"
	"fmt"

	venueerrors "roster/internal/venues/errors"
	"roster/pkg/config"
	mongotx "roster/pkg/db/mongo"
	"roster/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	VenuesCollection = "Venues"
)

type VenueRepository interface {
	FindByID(ctx context.Context, id string) (*model.Venue, error)
	// FindByIDs returns the venues found, keyed by id. Unknown ids are absent.
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Venue, error)
}

type mongoVenueRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoVenueRepository(cfg *config.Config) VenueRepository {
	return &mongoVenueRepository{
		cfg:        cfg,
		collection: cfg.Database().Collection(VenuesCollection),
	}
}

func (r *mongoVenueRepository) FindByID(ctx context.Context, id string) (*model.Venue, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", venueerrors.ErrInvalidID, id)
	}

	var venue model.Venue
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&venue); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", venueerrors.ErrVenueNotFound, id)
		}
		return nil, fmt.Errorf("failed to find venue: %w", err)
	}
	return &venue, nil
}

func (r *mongoVenueRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Venue, error) {
	venues := make(map[string]*model.Venue, len(ids))
	objectIDs := mongotx.ObjectIDs(ids)
	if len(objectIDs) == 0 {
		return venues, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to query venues: %w", err)
	}
	defer cursor.Close(ctx)

	var found []*model.Venue
	if err = cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to decode venues: %w", err)
	}
	for _, v := range found {
		venues[v.ID] = v
	}
	return venues, nil
}
