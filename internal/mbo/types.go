package mbo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05"
	timestampLayout = "2006-01-02T15:04:05"
)

// Timestamp reads the booking system's zone-less timestamps as UTC wall clock values.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, timestampLayout, DateLayout} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unsupported timestamp %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(timestampLayout))
}

// DaySeconds is the wall clock time of day in seconds.
func (t Timestamp) DaySeconds() int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

type Program struct {
	ID   int    `json:"Id"`
	Name string `json:"Name"`
}

type ClassDescription struct {
	ID          int64     `json:"Id"`
	Name        string    `json:"Name"`
	Active      bool      `json:"Active"`
	LastUpdated Timestamp `json:"LastUpdated"`
	Program     Program   `json:"Program"`
}

type Staff struct {
	ID          int64  `json:"Id"`
	FirstName   string `json:"FirstName"`
	LastName    string `json:"LastName"`
	DisplayName string `json:"DisplayName"`
	Email       string `json:"Email"`
}

type Pagination struct {
	RequestedLimit  int `json:"RequestedLimit"`
	RequestedOffset int `json:"RequestedOffset"`
	PageSize        int `json:"PageSize"`
	TotalResults    int `json:"TotalResults"`
}

type StaffPage struct {
	Pagination Pagination `json:"PaginationResponse"`
	Staff      []Staff    `json:"StaffMembers"`
}

// HasMore reports whether pages beyond this one exist.
func (p StaffPage) HasMore() bool {
	return p.Pagination.RequestedOffset+len(p.Staff) < p.Pagination.TotalResults && len(p.Staff) > 0
}

type Location struct {
	ID   int    `json:"Id"`
	Name string `json:"Name,omitempty"`
}

type Resource struct {
	ID   int    `json:"Id"`
	Name string `json:"Name,omitempty"`
}

// ClassSchedule is a recurring booking in the booking system.
type ClassSchedule struct {
	ID               int64            `json:"Id"`
	ClassDescription ClassDescription `json:"ClassDescription"`
	Location         Location         `json:"Location"`
	Resource         *Resource        `json:"Resource,omitempty"`
	Staff            *Staff           `json:"Staff,omitempty"`
	StartDate        Timestamp        `json:"StartDate"`
	EndDate          Timestamp        `json:"EndDate"`
	StartTime        Timestamp        `json:"StartTime"`
	EndTime          Timestamp        `json:"EndTime"`
	DaySunday        bool             `json:"DaySunday"`
	DayMonday        bool             `json:"DayMonday"`
	DayTuesday       bool             `json:"DayTuesday"`
	DayWednesday     bool             `json:"DayWednesday"`
	DayThursday      bool             `json:"DayThursday"`
	DayFriday        bool             `json:"DayFriday"`
	DaySaturday      bool             `json:"DaySaturday"`
	MaxCapacity      int              `json:"MaxCapacity"`
	WebCapacity      int              `json:"WebCapacity"`
}

func (s *ClassSchedule) ResourceID() int {
	if s.Resource == nil {
		return 0
	}
	return s.Resource.ID
}

func (s *ClassSchedule) OnWeekday(wd time.Weekday) bool {
	switch wd {
	case time.Sunday:
		return s.DaySunday
	case time.Monday:
		return s.DayMonday
	case time.Tuesday:
		return s.DayTuesday
	case time.Wednesday:
		return s.DayWednesday
	case time.Thursday:
		return s.DayThursday
	case time.Friday:
		return s.DayFriday
	case time.Saturday:
		return s.DaySaturday
	}
	return false
}

// OccursOn reports whether the schedule runs on the calendar date of day, which is read
// as wall clock.
func (s *ClassSchedule) OccursOn(day time.Time) bool {
	date := civilDate(day)
	if !s.StartDate.IsZero() && date.Before(civilDate(s.StartDate.Time)) {
		return false
	}
	if !s.EndDate.IsZero() && date.After(civilDate(s.EndDate.Time)) {
		return false
	}
	return s.OnWeekday(date.Weekday())
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Weekdays holds the day flags sent with a create or update.
type Weekdays struct {
	DaySunday    bool `json:"DaySunday"`
	DayMonday    bool `json:"DayMonday"`
	DayTuesday   bool `json:"DayTuesday"`
	DayWednesday bool `json:"DayWednesday"`
	DayThursday  bool `json:"DayThursday"`
	DayFriday    bool `json:"DayFriday"`
	DaySaturday  bool `json:"DaySaturday"`
}

func WeekdaysOf(wd time.Weekday) Weekdays {
	return Weekdays{
		DaySunday:    wd == time.Sunday,
		DayMonday:    wd == time.Monday,
		DayTuesday:   wd == time.Tuesday,
		DayWednesday: wd == time.Wednesday,
		DayThursday:  wd == time.Thursday,
		DayFriday:    wd == time.Friday,
		DaySaturday:  wd == time.Saturday,
	}
}

// ClassScheduleRequest is the create payload.
type ClassScheduleRequest struct {
	ClassDescriptionID int64  `json:"ClassDescriptionId" validate:"required,gt=0"`
	LocationID         int    `json:"LocationId" validate:"required,gt=0"`
	ResourceID         int    `json:"ResourceId,omitempty" validate:"gte=0"`
	StaffID            int64  `json:"StaffId" validate:"required"`
	StartDate          string `json:"StartDate" validate:"required,datetime=2006-01-02"`
	EndDate            string `json:"EndDate" validate:"required,datetime=2006-01-02"`
	StartTime          string `json:"StartTime" validate:"required,datetime=15:04:05"`
	EndTime            string `json:"EndTime" validate:"required,datetime=15:04:05"`
	Weekdays
	MaxCapacity      int     `json:"MaxCapacity" validate:"gte=0"`
	WebCapacity      int     `json:"WebCapacity" validate:"gte=0"`
	PricingOptionIDs []int64 `json:"PricingOptionIds,omitempty"`
	ProgramID        int     `json:"ProgramId,omitempty"`
}

// DaySeconds returns the requested start and end as seconds of the day.
func (r *ClassScheduleRequest) DaySeconds() (int, int, error) {
	start, err := time.Parse(TimeLayout, r.StartTime)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start time %q: %w", r.StartTime, err)
	}
	end, err := time.Parse(TimeLayout, r.EndTime)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end time %q: %w", r.EndTime, err)
	}
	return Timestamp{start}.DaySeconds(), Timestamp{end}.DaySeconds(), nil
}

// ClassScheduleUpdate changes only the non-nil fields of an existing schedule.
type ClassScheduleUpdate struct {
	ClassID            int64   `json:"ClassId" validate:"required"`
	ClassDescriptionID *int64  `json:"ClassDescriptionId,omitempty" validate:"omitempty,gt=0"`
	StaffID            *int64  `json:"StaffId,omitempty" validate:"omitempty,gt=0"`
	StartTime          *string `json:"StartTime,omitempty" validate:"omitempty,datetime=15:04:05"`
	EndTime            *string `json:"EndTime,omitempty" validate:"omitempty,datetime=15:04:05"`
	MaxCapacity        *int    `json:"MaxCapacity,omitempty" validate:"omitempty,gte=0"`
	WebCapacity        *int    `json:"WebCapacity,omitempty" validate:"omitempty,gte=0"`
}

// Empty reports whether the update changes nothing.
func (u *ClassScheduleUpdate) Empty() bool {
	return u.ClassDescriptionID == nil && u.StaffID == nil && u.StartTime == nil &&
		u.EndTime == nil && u.MaxCapacity == nil && u.WebCapacity == nil
}

// Diff builds the update that turns current into want.
func Diff(current *ClassSchedule, want *ClassScheduleRequest) *ClassScheduleUpdate {
	upd := &ClassScheduleUpdate{ClassID: current.ID}

	if current.ClassDescription.ID != want.ClassDescriptionID {
		upd.ClassDescriptionID = &want.ClassDescriptionID
	}
	if current.Staff == nil || current.Staff.ID != want.StaffID {
		upd.StaffID = &want.StaffID
	}
	if current.StartTime.Format(TimeLayout) != want.StartTime {
		upd.StartTime = &want.StartTime
	}
	if current.EndTime.Format(TimeLayout) != want.EndTime {
		upd.EndTime = &want.EndTime
	}
	if current.MaxCapacity != want.MaxCapacity {
		upd.MaxCapacity = &want.MaxCapacity
	}
	if current.WebCapacity != want.WebCapacity {
		upd.WebCapacity = &want.WebCapacity
	}
	return upd
}

type EndScheduleRequest struct {
	ClassID int64  `json:"ClassId" validate:"required"`
	EndDate string `json:"EndDate" validate:"required,datetime=2006-01-02"`
}

type CancelScheduleRequest struct {
	ClassID int64 `json:"ClassId" validate:"required"`
}

// ScheduleQuery selects class schedules by location and date range.
type ScheduleQuery struct {
	LocationIDs []int
	StartDate   time.Time
	EndDate     time.Time
	StaffIDs    []int64
}

type classDescriptionsResponse struct {
	Pagination        Pagination         `json:"PaginationResponse"`
	ClassDescriptions []ClassDescription `json:"ClassDescriptions"`
}

type classSchedulesResponse struct {
	Pagination     Pagination      `json:"PaginationResponse"`
	ClassSchedules []ClassSchedule `json:"ClassSchedules"`
}

type classScheduleResponse struct {
	ClassSchedule ClassSchedule `json:"ClassSchedule"`
}

type tokenRequest struct {
	Username string `json:"Username"`
	Password string `json:"Password"`
}

type tokenResponse struct {
	TokenType   string `json:"TokenType"`
	AccessToken string `json:"AccessToken"`
}
