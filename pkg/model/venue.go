package model

import "time"

// Venue is a physical location plus the identifiers it maps to in the booking system.
type Venue struct {
	ID               string  `json:"id" bson:"_id,omitempty"`
	Name             string  `json:"name" bson:"name"`
	SiteID           int     `json:"site_id" bson:"site_id"`
	LocationID       int     `json:"location_id" bson:"location_id"`
	ResourceID       int     `json:"resource_id" bson:"resource_id"`
	ProgramID        int     `json:"program_id,omitempty" bson:"program_id,omitempty"`
	Capacity         int     `json:"capacity" bson:"capacity"`
	WebCapacity      int     `json:"web_capacity" bson:"web_capacity"`
	PricingOptionIDs []int64 `json:"pricing_option_ids,omitempty" bson:"pricing_option_ids,omitempty"`
	TimeZone         string  `json:"time_zone,omitempty" bson:"time_zone,omitempty"`
}

// Location resolves the venue time zone, falling back to UTC.
func (v *Venue) Location() *time.Location {
	if v.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(v.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
