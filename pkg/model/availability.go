package model

import "time"

// AvailabilitySlot is one atomic interval (SLOT_UNIT long) in which a coach can work
// at any of VenueIDs. CheckedIn marks a slot consumed by a published session.
type AvailabilitySlot struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	UserID    string    `json:"user_id" bson:"user_id"`
	VenueIDs  []string  `json:"venue_ids" bson:"venue_ids"`
	StartTime time.Time `json:"start_time" bson:"start_time"`
	EndTime   time.Time `json:"end_time" bson:"end_time"`
	Usable    bool      `json:"usable" bson:"usable"`
	CheckedIn bool      `json:"checked_in" bson:"checked_in"`
	EventID   string    `json:"event_id,omitempty" bson:"event_id,omitempty"`
}

// Covers reports whether t falls in [StartTime, EndTime).
func (s *AvailabilitySlot) Covers(t time.Time) bool {
	return !t.Before(s.StartTime) && t.Before(s.EndTime)
}

func (s *AvailabilitySlot) AtVenue(venueID string) bool {
	return contains(s.VenueIDs, venueID)
}
