package model

import (
	"strings"

	"roster/pkg/sanitizer"
)

// User is a staff member record owned by user management. Read-only here.
type User struct {
	ID          string   `json:"id" bson:"_id,omitempty"`
	FirstName   string   `json:"first_name" bson:"first_name"`
	LastName    string   `json:"last_name" bson:"last_name"`
	DisplayName string   `json:"display_name,omitempty" bson:"display_name,omitempty"`
	Email       string   `json:"email,omitempty" bson:"email,omitempty"`
	Tags        []string `json:"tags,omitempty" bson:"tags,omitempty"`
}

func (u *User) Name() string {
	if u.DisplayName != "" {
		return sanitizer.NormalizeName(u.DisplayName)
	}
	return sanitizer.FullName(u.FirstName, u.LastName)
}

func (u *User) HasTag(tag string) bool {
	if tag == "" {
		return false
	}
	for _, t := range u.Tags {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return true
		}
	}
	return false
}

// CoachProfile holds what a coach may teach, where, and how often per week.
type CoachProfile struct {
	ID           string   `json:"id,omitempty" bson:"_id,omitempty"`
	UserID       string   `json:"user_id" bson:"user_id"`
	ClassTypeIDs []string `json:"class_type_ids" bson:"class_type_ids"`
	VenueIDs     []string `json:"venue_ids" bson:"venue_ids"`
	Quota        int      `json:"quota" bson:"quota"`
	QuotaMin     int      `json:"quota_min" bson:"quota_min"`
	QuotaMax     int      `json:"quota_max" bson:"quota_max"`
	TenureMonths int      `json:"tenure_months" bson:"tenure_months"`
}

func (p *CoachProfile) TeachesClass(classTypeID string) bool {
	return contains(p.ClassTypeIDs, classTypeID)
}

func (p *CoachProfile) CoachesAt(venueID string) bool {
	return contains(p.VenueIDs, venueID)
}

// Coach is a user joined with its profile.
type Coach struct {
	User    User         `json:"user"`
	Profile CoachProfile `json:"profile"`
}

func (c *Coach) ID() string {
	return c.User.ID
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
