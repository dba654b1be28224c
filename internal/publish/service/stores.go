package service

import (
	"context"
	"time"

	"roster/internal/publish/repository"
	"roster/pkg/model"
)

type ContainerStore interface {
	FindByID(ctx context.Context, id string) (*model.EventContainer, error)
	SetStatus(ctx context.Context, id string, status model.ContainerStatus) error
}

type EventStore interface {
	FindByID(ctx context.Context, id string) (*model.Event, error)
	FindPublishable(ctx context.Context, containerID string) ([]*model.Event, error)
	FindLocked(ctx context.Context, containerID string) ([]*model.Event, error)
	MarkPublished(ctx context.Context, id, externalRef, runID string) error
}

type VenueFinder interface {
	FindByID(ctx context.Context, id string) (*model.Venue, error)
}

type UserFinder interface {
	FindUsersByIDs(ctx context.Context, ids []string) (map[string]*model.User, error)
}

type ClassTypeFinder interface {
	FindByID(ctx context.Context, id string) (*model.ClassType, error)
}

// CheckInMarker consumes the coach availability a published session occupies.
type CheckInMarker interface {
	MarkCheckedIn(ctx context.Context, userID, venueID string, start, end time.Time, eventID string) (int64, error)
}

// Stores groups the persistence the orchestrator and the worker share.
type Stores struct {
	Containers   ContainerStore
	Events       EventStore
	Venues       VenueFinder
	Users        UserFinder
	ClassTypes   ClassTypeFinder
	Availability CheckInMarker
	Runs         repository.PublishRunRepository
	Logs         repository.BookingLogRepository
	Locks        repository.PublishLockRepository
}
