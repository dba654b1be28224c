package repository

import (
	"context"
	"fmt"
	"time"

	"roster/pkg/config"
	mongotx "roster/pkg/db/mongo"
	"roster/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	BookingLogsCollection = "BookingLogs"
)

// BookingLogRepository is the append-only audit trail of booking system calls.
type BookingLogRepository interface {
	Insert(ctx context.Context, log *model.BookingLog) error
	InsertMany(ctx context.Context, logs []*model.BookingLog) error
	FindByRun(ctx context.Context, runID string) ([]*model.BookingLog, error)
	DeleteByRun(ctx context.Context, runID string) (int64, error)
}

type mongoBookingLogRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBookingLogRepository(cfg *config.Config) BookingLogRepository {
	return &mongoBookingLogRepository{
		cfg:        cfg,
		collection: cfg.Database().Collection(BookingLogsCollection),
	}
}

func prepareLog(log *model.BookingLog) {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
}

func (r *mongoBookingLogRepository) Insert(ctx context.Context, log *model.BookingLog) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	prepareLog(log)
	if _, err := r.collection.InsertOne(ctx, log); err != nil {
		return fmt.Errorf("failed to insert booking log: %w", err)
	}
	return nil
}

func (r *mongoBookingLogRepository) InsertMany(ctx context.Context, logs []*model.BookingLog) error {
	if len(logs) == 0 {
		return nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	docs := make([]any, 0, len(logs))
	for _, log := range logs {
		prepareLog(log)
		docs = append(docs, log)
	}
	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert booking logs: %w", err)
	}
	return nil
}

func (r *mongoBookingLogRepository) FindByRun(ctx context.Context, runID string) ([]*model.BookingLog, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"run_id": runID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query booking logs: %w", err)
	}
	defer cursor.Close(ctx)

	logs := []*model.BookingLog{}
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode booking logs: %w", err)
	}
	return logs, nil
}

func (r *mongoBookingLogRepository) DeleteByRun(ctx context.Context, runID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	res, err := r.collection.DeleteMany(ctx, bson.M{"run_id": runID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete booking logs: %w", err)
	}
	return res.DeletedCount, nil
}
