package repository

import (
	"context"
	"errors"
	"fmt"

	coacherrors "roster/internal/coaches/errors"
	"roster/pkg/config"
	mongotx "roster/pkg/db/mongo"
	"roster/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	ClassTypesCollection     = "ClassTypes"
	StaffDirectoryCollection = "StaffDirectory"
)

type ClassTypeRepository interface {
	FindByID(ctx context.Context, id string) (*model.ClassType, error)
}

type mongoClassTypeRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoClassTypeRepository(cfg *config.Config) ClassTypeRepository {
	return &mongoClassTypeRepository{
		cfg:        cfg,
		collection: cfg.Database().Collection(ClassTypesCollection),
	}
}

func (r *mongoClassTypeRepository) FindByID(ctx context.Context, id string) (*model.ClassType, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", coacherrors.ErrInvalidID, id)
	}

	var classType model.ClassType
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&classType); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", coacherrors.ErrClassTypeNotFound, id)
		}
		return nil, fmt.Errorf("failed to find class type: %w", err)
	}
	return &classType, nil
}

// StaffDirectoryRepository is the secondary e-mail to staff id lookup.
type StaffDirectoryRepository interface {
	FindByEmail(ctx context.Context, email string, siteID int) (*model.StaffDirectoryEntry, error)
}

type mongoStaffDirectoryRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoStaffDirectoryRepository(cfg *config.Config) StaffDirectoryRepository {
	return &mongoStaffDirectoryRepository{
		cfg:        cfg,
		collection: cfg.Database().Collection(StaffDirectoryCollection),
	}
}

func (r *mongoStaffDirectoryRepository) FindByEmail(ctx context.Context, email string, siteID int) (*model.StaffDirectoryEntry, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var entry model.StaffDirectoryEntry
	err := r.collection.FindOne(ctx, bson.M{"email": email, "site_id": siteID}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", coacherrors.ErrStaffEntryNotFound, email)
		}
		return nil, fmt.Errorf("failed to find staff directory entry: %w", err)
	}
	return &entry, nil
}
