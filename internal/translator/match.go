package translator

import (
	"sort"
	"time"

	"roster/internal/mbo"
	"roster/pkg/model"
	"roster/pkg/sanitizer"
)

// MatchClassDescription picks the active description whose name matches the class type
// name or one of its aliases. Preference order: the venue program, then an exact match
// on the primary name, then the most recently updated.
func MatchClassDescription(descs []mbo.ClassDescription, primary string, aliases []string, programID int) (*mbo.ClassDescription, bool) {
	keys := sanitizer.MatchKeys(append([]string{primary}, aliases...)...)
	primaryKey := sanitizer.MatchKey(primary)

	var candidates []mbo.ClassDescription
	for _, d := range descs {
		if !d.Active {
			continue
		}
		if _, ok := keys[sanitizer.MatchKey(d.Name)]; ok {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if programID != 0 {
			aProgram, bProgram := a.Program.ID == programID, b.Program.ID == programID
			if aProgram != bProgram {
				return aProgram
			}
		}
		aExact, bExact := sanitizer.MatchKey(a.Name) == primaryKey, sanitizer.MatchKey(b.Name) == primaryKey
		if aExact != bExact {
			return aExact
		}
		return a.LastUpdated.After(b.LastUpdated.Time)
	})

	best := candidates[0]
	return &best, true
}

// MatchStaff finds the staff member whose display name or first and last name matches
// the host.
func MatchStaff(staff []mbo.Staff, host *model.User) (*mbo.Staff, bool) {
	keys := sanitizer.MatchKeys(host.Name(), sanitizer.FullName(host.FirstName, host.LastName))
	if len(keys) == 0 {
		return nil, false
	}

	for i := range staff {
		s := staff[i]
		if _, ok := keys[sanitizer.MatchKey(s.DisplayName)]; ok {
			return &s, true
		}
		if _, ok := keys[sanitizer.MatchKey(sanitizer.FullName(s.FirstName, s.LastName))]; ok {
			return &s, true
		}
	}
	return nil, false
}

// SameResource reports whether b takes the venue's room. Resource ids are compared when
// both sides have one; otherwise the location decides.
func SameResource(b *mbo.ClassSchedule, resourceID, locationID int) bool {
	if resourceID != 0 && b.ResourceID() != 0 {
		return b.ResourceID() == resourceID
	}
	return b.Location.ID == locationID
}

// Overlapping returns the bookings on the same resource that run on day and whose
// time of day intersects [startSec, endSec).
func Overlapping(bookings []mbo.ClassSchedule, resourceID, locationID int, day time.Time, startSec, endSec int) []mbo.ClassSchedule {
	var out []mbo.ClassSchedule
	for i := range bookings {
		b := &bookings[i]
		if !SameResource(b, resourceID, locationID) {
			continue
		}
		if !b.OccursOn(day) {
			continue
		}
		if b.StartTime.DaySeconds() < endSec && b.EndTime.DaySeconds() > startSec {
			out = append(out, *b)
		}
	}
	return out
}
