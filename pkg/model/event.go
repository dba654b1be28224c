package model

import "time"

type EventStatus string

const (
	EventStatusEditing EventStatus = "editing"
	EventStatusLocked  EventStatus = "locked"
)

// Event is one scheduled class occurrence. The calendar fields are denormalized
// from StartTime in the venue time zone.
type Event struct {
	ID             string      `json:"id" bson:"_id,omitempty"`
	ContainerID    string      `json:"container_id" bson:"container_id"`
	HostUserID     string      `json:"host_user_id,omitempty" bson:"host_user_id,omitempty"`
	VenueID        string      `json:"venue_id" bson:"venue_id"`
	ClassTypeID    string      `json:"class_type_id" bson:"class_type_id"`
	ClassTypeName  string      `json:"class_type_name,omitempty" bson:"class_type_name,omitempty"`
	StartTime      time.Time   `json:"start_time" bson:"start_time"`
	EndTime        time.Time   `json:"end_time" bson:"end_time"`
	Year           int         `json:"year" bson:"year"`
	Month          int         `json:"month" bson:"month"`
	WeekOfMonth    int         `json:"week_of_month" bson:"week_of_month"`
	DayOfMonth     int         `json:"day_of_month" bson:"day_of_month"`
	Hour           int         `json:"hour" bson:"hour"`
	Minute         int         `json:"minute" bson:"minute"`
	Status         EventStatus `json:"status" bson:"status"`
	Deleted        bool        `json:"is_deleted" bson:"is_deleted"`
	Published      bool        `json:"is_published" bson:"is_published"`
	ExternalRef    string      `json:"external_ref,omitempty" bson:"external_ref,omitempty"`
	PublishedRunID string      `json:"published_run_id,omitempty" bson:"published_run_id,omitempty"`
	UpdatedAt      time.Time   `json:"updated_at" bson:"updated_at"`
}

func (e *Event) IsLocked() bool {
	return e.Status == EventStatusLocked
}

func (e *Event) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

func (e *Event) Period() Period {
	return Period{Year: e.Year, Month: e.Month, WeekOfMonth: e.WeekOfMonth}
}

// Decompose fills the calendar fields from StartTime as seen in loc.
func (e *Event) Decompose(loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	local := e.StartTime.In(loc)
	e.Year = local.Year()
	e.Month = int(local.Month())
	e.WeekOfMonth = WeekOfMonth(local)
	e.DayOfMonth = local.Day()
	e.Hour = local.Hour()
	e.Minute = local.Minute()
}

type ContainerStatus string

const (
	ContainerStatusEditing   ContainerStatus = "editing"
	ContainerStatusPublished ContainerStatus = "published"
)

type ContainerOrigin string

const (
	ContainerOriginInternal ContainerOrigin = "internal"
	ContainerOriginImported ContainerOrigin = "imported"
)

// EventContainer groups the events of one venue and month.
type EventContainer struct {
	ID        string          `json:"id" bson:"_id,omitempty"`
	Name      string          `json:"name" bson:"name"`
	VenueID   string          `json:"venue_id" bson:"venue_id"`
	Year      int             `json:"year" bson:"year"`
	Month     int             `json:"month" bson:"month"`
	Status    ContainerStatus `json:"status" bson:"status"`
	Origin    ContainerOrigin `json:"origin" bson:"origin"`
	UpdatedAt time.Time       `json:"updated_at" bson:"updated_at"`
}
