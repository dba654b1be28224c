package model

import "time"

type IssueType string

const (
	IssueNoCoach           IssueType = "NO_COACH"
	IssueNonexistentCoach  IssueType = "NONEXISTENT_COACH"
	IssueUnconfiguredCoach IssueType = "UNCONFIGURED_COACH"
	IssueUnavailableClass  IssueType = "UNAVAILABLE_CLASS"
	IssueUnavailableVenue  IssueType = "UNAVAILABLE_VENUE"
	IssueUnavailableTime   IssueType = "UNAVAILABLE_TIME"
	IssueConflictingTime   IssueType = "CONFLICTING_TIME"
)

type IssueStatus string

const (
	IssueStatusUnrepaired IssueStatus = "unrepaired"
	IssueStatusRepaired   IssueStatus = "repaired"
)

// Issue is one conflict-detection finding for one event.
type Issue struct {
	ID          string      `json:"id" bson:"_id"`
	Type        IssueType   `json:"type" bson:"type"`
	Description string      `json:"description" bson:"description"`
	EventID     string      `json:"event_id" bson:"event_id"`
	ContainerID string      `json:"container_id" bson:"container_id"`
	WeekOfMonth int         `json:"week_of_month" bson:"week_of_month"`
	Status      IssueStatus `json:"status" bson:"status"`
	CreatedAt   time.Time   `json:"created_at" bson:"created_at"`
}
