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
	IssuesCollection = "Issues"
)

type IssueRepository interface {
	// ReplaceForEvents deletes the unrepaired issues of the events and inserts the new set
	// in one transaction.
	ReplaceForEvents(ctx context.Context, eventIDs []string, issues []*model.Issue) error
	FindUnrepaired(ctx context.Context, containerID string, weekOfMonth int) ([]*model.Issue, error)
}

type mongoIssueRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoIssueRepository(cfg *config.Config, txManager mongotx.TransactionManager) IssueRepository {
	return &mongoIssueRepository{
		cfg:        cfg,
		collection: cfg.Database().Collection(IssuesCollection),
		txManager:  txManager,
	}
}

func (r *mongoIssueRepository) ReplaceForEvents(ctx context.Context, eventIDs []string, issues []*model.Issue) error {
	if len(eventIDs) == 0 && len(issues) == 0 {
		return nil
	}

	return r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		deleted, err := r.collection.DeleteMany(sessCtx, bson.M{
			"event_id": bson.M{"$in": eventIDs},
			"status":   model.IssueStatusUnrepaired,
		})
		if err != nil {
			return fmt.Errorf("failed to delete unrepaired issues: %w", err)
		}

		if len(issues) > 0 {
			docs := make([]any, 0, len(issues))
			for _, issue := range issues {
				docs = append(docs, issue)
			}
			if _, err := r.collection.InsertMany(sessCtx, docs); err != nil {
				return fmt.Errorf("failed to insert issues: %w", err)
			}
		}

		r.cfg.Log.Debug("Replaced unrepaired issues",
			"events", len(eventIDs),
			"deleted", deleted.DeletedCount,
			"inserted", len(issues),
		)
		return nil
	})
}

func (r *mongoIssueRepository) FindUnrepaired(ctx context.Context, containerID string, weekOfMonth int) ([]*model.Issue, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"container_id":  containerID,
		"week_of_month": weekOfMonth,
		"status":        model.IssueStatusUnrepaired,
	}
	opts := options.Find().SetSort(bson.D{{Key: "event_id", Value: 1}, {Key: "type", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer cursor.Close(ctx)

	issues := []*model.Issue{}
	if err = cursor.All(ctx, &issues); err != nil {
		return nil, fmt.Errorf("failed to decode issues: %w", err)
	}
	return issues, nil
}
