package model

import "time"

type PublishStatus string

const (
	PublishStatusPending    PublishStatus = "PENDING"
	PublishStatusRemoving   PublishStatus = "REMOVING"
	PublishStatusRemoved    PublishStatus = "REMOVED"
	PublishStatusPublishing PublishStatus = "PUBLISHING"
	PublishStatusCompleted  PublishStatus = "COMPLETED"
	PublishStatusFailed     PublishStatus = "FAILED"
)

func (s PublishStatus) IsTerminal() bool {
	return s == PublishStatusCompleted || s == PublishStatusFailed
}

// ActivePublishStatuses lists every non-terminal status.
var ActivePublishStatuses = []PublishStatus{
	PublishStatusPending,
	PublishStatusRemoving,
	PublishStatusRemoved,
	PublishStatusPublishing,
}

// PublishRun tracks one execution of publishing a container. Counters are only
// changed through atomic store updates.
type PublishRun struct {
	ID                  string        `json:"id" bson:"_id"`
	ContainerID         string        `json:"container_id" bson:"container_id"`
	Status              PublishStatus `json:"status" bson:"status"`
	TotalSessions       int           `json:"total_sessions" bson:"total_sessions"`
	ProcessedSessionIDs []string      `json:"processed_session_ids" bson:"processed_session_ids"`
	Succeeded           int           `json:"succeeded" bson:"succeeded"`
	Failed              int           `json:"failed" bson:"failed"`
	OldBookingsFound    int           `json:"old_bookings_found" bson:"old_bookings_found"`
	Removed             int           `json:"removed" bson:"removed"`
	Error               string        `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt           time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at" bson:"updated_at"`
	CompletedAt         *time.Time    `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	Stale               bool          `json:"stale" bson:"-"`
}

func (r *PublishRun) Processed() int {
	return len(r.ProcessedSessionIDs)
}

func (r *PublishRun) HasProcessed(eventID string) bool {
	return contains(r.ProcessedSessionIDs, eventID)
}

type BookingOutcome string

const (
	OutcomeCreated   BookingOutcome = "created"
	OutcomeUpdated   BookingOutcome = "updated"
	OutcomeEnded     BookingOutcome = "ended"
	OutcomeCancelled BookingOutcome = "cancelled"
	OutcomeUnchanged BookingOutcome = "unchanged"
	OutcomeBlocked   BookingOutcome = "blocked"
	OutcomeFailed    BookingOutcome = "failed"
	OutcomeSkipped   BookingOutcome = "skipped"
)

// BookingLog is an append-only audit row for one booking-system call or decision.
type BookingLog struct {
	ID          string         `json:"id" bson:"_id"`
	RunID       string         `json:"run_id" bson:"run_id"`
	ContainerID string         `json:"container_id" bson:"container_id"`
	EventID     string         `json:"event_id,omitempty" bson:"event_id,omitempty"`
	VenueID     string         `json:"venue_id,omitempty" bson:"venue_id,omitempty"`
	SiteID      int            `json:"site_id,omitempty" bson:"site_id,omitempty"`
	Function    string         `json:"function" bson:"function"`
	Params      any            `json:"params,omitempty" bson:"params,omitempty"`
	Response    any            `json:"response,omitempty" bson:"response,omitempty"`
	Success     bool           `json:"success" bson:"success"`
	Outcome     BookingOutcome `json:"outcome" bson:"outcome"`
	Error       string         `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
}

// PublishLock is the per-container admission lock. Its _id is derived from the
// container id so that a second insert fails with a duplicate key.
type PublishLock struct {
	ID          string    `json:"id" bson:"_id"`
	ContainerID string    `json:"container_id" bson:"container_id"`
	RunID       string    `json:"run_id" bson:"run_id"`
	ExpiresAt   time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

func PublishLockID(containerID string) string {
	return "publish_lock_" + containerID
}
