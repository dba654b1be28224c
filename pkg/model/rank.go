package model

import "time"

// RankRequest describes a candidate session to staff.
type RankRequest struct {
	VenueID     string    `json:"venue_id" validate:"required"`
	ClassTypeID string    `json:"class_type_id" validate:"required"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
	Period      Period    `json:"period"`
}

type QuotaTier int

const (
	TierUnderQuota QuotaTier = iota + 1
	TierUnderMin
	TierUnderMax
)

// RankedCoach is a coach annotated with the figures the ranking used.
type RankedCoach struct {
	Coach
	Available      bool      `json:"available"`
	Assigned       int       `json:"assigned"`
	RemainingQuota int       `json:"remaining_quota"`
	RemainingMin   int       `json:"remaining_min"`
	RemainingMax   int       `json:"remaining_max"`
	Tier           QuotaTier `json:"tier"`
	Ratio          float64   `json:"ratio"`
	Eligible       bool      `json:"eligible"`
}
