package model

// StaffDirectoryEntry maps a coach e-mail to a booking-system staff id per site.
// Used when the remote staff list has no name match.
type StaffDirectoryEntry struct {
	ID      string `json:"id,omitempty" bson:"_id,omitempty"`
	Email   string `json:"email" bson:"email"`
	SiteID  int    `json:"site_id" bson:"site_id"`
	StaffID int64  `json:"staff_id" bson:"staff_id"`
}
