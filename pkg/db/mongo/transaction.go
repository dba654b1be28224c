package mongo

import (
	"context"
	"fmt"
	"time"

	apperrors "roster/pkg/errors"
	"roster/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// DefaultTransactionTimeout bounds a whole transaction including driver retries.
const DefaultTransactionTimeout = 15 * time.Second

type TransactionFunc func(ctx mongo.SessionContext) error

type TransactionManager interface {
	// ExecuteTransaction runs fn in a snapshot transaction committed with majority write concern.
	// fn may run more than once when the driver retries a transient failure.
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client  *mongo.Client
	timeout time.Duration
	log     *logger.Logger
}

func NewTransactionManager(client *mongo.Client, log *logger.Logger) TransactionManager {
	return &mongoTransactionManager{
		client:  client,
		timeout: DefaultTransactionTimeout,
		log:     log,
	}
}

func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	attempts := 0
	start := time.Now()
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		attempts++
		return nil, fn(sessCtx)
	}, txOpts)

	if attempts > 1 {
		m.log.Warn("Transaction retried",
			"attempts", attempts,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
	}

	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return fmt.Errorf("transaction failed after %d attempt(s): %w", attempts, err)
	}

	return nil
}
