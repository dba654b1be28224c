package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roster/internal/publish"
	publisherrors "roster/internal/publish/errors"
	scheduleerrors "roster/internal/schedule/errors"
	"roster/pkg/config"
	apperrors "roster/pkg/errors"
	"roster/pkg/model"

	"github.com/google/uuid"
)

// lockGrace protects a freshly acquired lock whose run has not been created yet.
const lockGrace = time.Minute

type Orchestrator interface {
	// PublishContainer admits a new run for the container and queues its removal step.
	// It fails with PUBLISH_IN_PROGRESS while another run of the container is active.
	PublishContainer(ctx context.Context, containerID string) (*model.PublishRun, error)
	// GetStatus returns a run, flagging it stale when it has not moved for too long.
	GetStatus(ctx context.Context, runID string) (*model.PublishRun, error)
	ListLogs(ctx context.Context, runID string) ([]*model.BookingLog, error)
}

type orchestrator struct {
	stores Stores
	queue  publish.Queue
	cfg    *config.Config
	now    func() time.Time
	newID  func() string
}

func NewOrchestrator(stores Stores, queue publish.Queue, cfg *config.Config) Orchestrator {
	return &orchestrator{
		stores: stores,
		queue:  queue,
		cfg:    cfg,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
}

func (s *orchestrator) PublishContainer(ctx context.Context, containerID string) (*model.PublishRun, error) {
	if containerID == "" {
		return nil, apperrors.InvalidInput("Container ID cannot be empty")
	}

	container, err := s.stores.Containers.FindByID(ctx, containerID)
	if err != nil {
		switch {
		case errors.Is(err, scheduleerrors.ErrContainerNotFound):
			return nil, apperrors.NotFoundWithID("Container", containerID)
		case errors.Is(err, scheduleerrors.ErrInvalidID):
			return nil, apperrors.InvalidInput("Invalid container ID format")
		}
		s.cfg.Log.Error("Failed to load container", "container_id", containerID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve container", err)
	}

	active, err := s.stores.Runs.FindActive(ctx, containerID)
	if err == nil {
		return nil, apperrors.PublishInProgress(containerID, active.ID)
	}
	if !errors.Is(err, publisherrors.ErrRunNotFound) {
		s.cfg.Log.Error("Failed to check active publish runs", "container_id", containerID, "error", err)
		return nil, apperrors.Internal("Failed to check active publish runs", err)
	}

	sessions, err := s.stores.Events.FindPublishable(ctx, containerID)
	if err != nil {
		s.cfg.Log.Error("Failed to load container sessions", "container_id", containerID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve sessions", err)
	}

	runID := s.newID()
	if err := s.admit(ctx, containerID, runID); err != nil {
		return nil, err
	}

	run := &model.PublishRun{
		ID:            runID,
		ContainerID:   containerID,
		Status:        model.PublishStatusPending,
		TotalSessions: len(sessions),
	}
	if err := s.stores.Runs.Create(ctx, run); err != nil {
		s.releaseLock(ctx, containerID, runID)
		s.cfg.Log.Error("Failed to create publish run", "container_id", containerID, "error", err)
		return nil, apperrors.Internal("Failed to create publish run", err)
	}

	if deleted, err := s.stores.Logs.DeleteByRun(ctx, runID); err != nil {
		s.cfg.Log.Warn("Failed to clear booking logs", "run_id", runID, "error", err)
	} else if deleted > 0 {
		s.cfg.Log.Debug("Cleared booking logs", "run_id", runID, "deleted", deleted)
	}

	task := publish.Task{Type: publish.TaskRemove, RunID: runID, ContainerID: containerID}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		s.cfg.Log.Error("Failed to enqueue removal step", "run_id", runID, "error", err)
		if _, failErr := s.stores.Runs.Fail(ctx, runID, fmt.Sprintf("failed to enqueue removal step: %v", err)); failErr != nil {
			s.cfg.Log.Error("Failed to mark publish run failed", "run_id", runID, "error", failErr)
		}
		s.releaseLock(ctx, containerID, runID)
		publish.ObserveRun(string(model.PublishStatusFailed))
		return nil, apperrors.Unavailable("Publish queue")
	}

	publish.ObserveRun(publish.RunStarted)
	s.cfg.Log.Info("Publish run started",
		"run_id", runID,
		"container_id", containerID,
		"venue_id", container.VenueID,
		"sessions", len(sessions),
	)
	return run, nil
}

// admit takes the container lock for runID. A lock left behind by a finished run is
// released and taken over.
func (s *orchestrator) admit(ctx context.Context, containerID, runID string) error {
	for attempt := 0; attempt < 2; attempt++ {
		_, err := s.stores.Locks.Acquire(ctx, containerID, runID, s.cfg.PublishLockTTL)
		if err == nil {
			return nil
		}
		if !errors.Is(err, publisherrors.ErrLockHeld) {
			s.cfg.Log.Error("Failed to acquire publish lock", "container_id", containerID, "error", err)
			return apperrors.Internal("Failed to acquire publish lock", err)
		}

		lock, err := s.stores.Locks.Find(ctx, containerID)
		if err != nil {
			if errors.Is(err, publisherrors.ErrLockNotFound) {
				continue
			}
			return apperrors.Internal("Failed to read publish lock", err)
		}

		holder, err := s.stores.Runs.FindByID(ctx, lock.RunID)
		switch {
		case err == nil && !holder.Status.IsTerminal():
			return apperrors.PublishInProgress(containerID, holder.ID)
		case err != nil && !errors.Is(err, publisherrors.ErrRunNotFound):
			return apperrors.Internal("Failed to read publish run", err)
		case err != nil && s.now().Sub(lock.CreatedAt) < lockGrace:
			return apperrors.PublishInProgress(containerID, lock.RunID)
		}

		s.cfg.Log.Warn("Releasing orphaned publish lock",
			"container_id", containerID,
			"holder_run_id", lock.RunID,
		)
		if err := s.stores.Locks.Release(ctx, containerID, lock.RunID); err != nil {
			return apperrors.Internal("Failed to release publish lock", err)
		}
	}
	return apperrors.PublishInProgress(containerID, "")
}

func (s *orchestrator) releaseLock(ctx context.Context, containerID, runID string) {
	if err := s.stores.Locks.Release(ctx, containerID, runID); err != nil {
		s.cfg.Log.Warn("Failed to release publish lock", "container_id", containerID, "run_id", runID, "error", err)
	}
}

func (s *orchestrator) GetStatus(ctx context.Context, runID string) (*model.PublishRun, error) {
	if runID == "" {
		return nil, apperrors.InvalidInput("Publish run ID cannot be empty")
	}

	run, err := s.stores.Runs.FindByID(ctx, runID)
	if err != nil {
		if errors.Is(err, publisherrors.ErrRunNotFound) {
			return nil, apperrors.NotFoundWithID("Publish run", runID)
		}
		s.cfg.Log.Error("Failed to load publish run", "run_id", runID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve publish run", err)
	}

	if !run.Status.IsTerminal() && s.now().Sub(run.UpdatedAt) > s.cfg.PublishStaleAfter {
		run.Stale = true
	}
	return run, nil
}

func (s *orchestrator) ListLogs(ctx context.Context, runID string) ([]*model.BookingLog, error) {
	if _, err := s.GetStatus(ctx, runID); err != nil {
		return nil, err
	}

	logs, err := s.stores.Logs.FindByRun(ctx, runID)
	if err != nil {
		s.cfg.Log.Error("Failed to load booking logs", "run_id", runID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking logs", err)
	}
	return logs, nil
}
