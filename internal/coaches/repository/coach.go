package repository

import (
	"context"
	"fmt"

	"roster/pkg/config"
	mongotx "roster/pkg/db/mongo"
	"roster/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection    = "Users"
	ProfilesCollection = "CoachProfiles"
)

type CoachRepository interface {
	// FindQualified returns coaches whose profile lists both the venue and the class type,
	// in profile store order.
	FindQualified(ctx context.Context, venueID, classTypeID string) ([]*model.Coach, error)
	FindUsersByIDs(ctx context.Context, ids []string) (map[string]*model.User, error)
	FindProfilesByUserIDs(ctx context.Context, userIDs []string) (map[string]*model.CoachProfile, error)
}

type mongoCoachRepository struct {
	cfg      *config.Config
	users    *mongo.Collection
	profiles *mongo.Collection
}

func NewMongoCoachRepository(cfg *config.Config) CoachRepository {
	db := cfg.Database()
	return &mongoCoachRepository{
		cfg:      cfg,
		users:    db.Collection(UsersCollection),
		profiles: db.Collection(ProfilesCollection),
	}
}

func (r *mongoCoachRepository) FindQualified(ctx context.Context, venueID, classTypeID string) ([]*model.Coach, error) {
	profiles, err := r.findProfiles(ctx, bson.M{
		"venue_ids":      venueID,
		"class_type_ids": classTypeID,
	})
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return []*model.Coach{}, nil
	}

	userIDs := make([]string, 0, len(profiles))
	for _, p := range profiles {
		userIDs = append(userIDs, p.UserID)
	}

	users, err := r.FindUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	coaches := make([]*model.Coach, 0, len(profiles))
	for _, p := range profiles {
		user, ok := users[p.UserID]
		if !ok {
			r.cfg.Log.Warn("Coach profile without user", "user_id", p.UserID)
			continue
		}
		coaches = append(coaches, &model.Coach{User: *user, Profile: *p})
	}
	return coaches, nil
}

func (r *mongoCoachRepository) FindUsersByIDs(ctx context.Context, ids []string) (map[string]*model.User, error) {
	users := make(map[string]*model.User, len(ids))
	objectIDs := mongotx.ObjectIDs(ids)
	if len(objectIDs) == 0 {
		return users, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer cursor.Close(ctx)

	var found []*model.User
	if err = cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	for _, u := range found {
		users[u.ID] = u
	}
	return users, nil
}

func (r *mongoCoachRepository) FindProfilesByUserIDs(ctx context.Context, userIDs []string) (map[string]*model.CoachProfile, error) {
	profiles := make(map[string]*model.CoachProfile, len(userIDs))
	if len(userIDs) == 0 {
		return profiles, nil
	}

	found, err := r.findProfiles(ctx, bson.M{"user_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, err
	}
	for _, p := range found {
		profiles[p.UserID] = p
	}
	return profiles, nil
}

func (r *mongoCoachRepository) findProfiles(ctx context.Context, filter bson.M) ([]*model.CoachProfile, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.profiles.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query coach profiles: %w", err)
	}
	defer cursor.Close(ctx)

	profiles := []*model.CoachProfile{}
	if err = cursor.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("failed to decode coach profiles: %w", err)
	}
	return profiles, nil
}
