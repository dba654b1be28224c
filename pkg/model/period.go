package model

import "time"

// Period identifies one scheduling week: weeks start on Monday and week 1 of a
// month is the one containing the 1st.
type Period struct {
	Year        int `json:"year" bson:"year"`
	Month       int `json:"month" bson:"month"`
	WeekOfMonth int `json:"week_of_month" bson:"week_of_month"`
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0 && p.WeekOfMonth == 0
}

// WeekOfMonth returns the Monday-based week index of t within its month, starting at 1.
func WeekOfMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	offset := mondayOffset(first.Weekday())
	return (t.Day()-1+offset)/7 + 1
}

func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month()), WeekOfMonth: WeekOfMonth(t)}
}

// WeekRange returns [start, end) of the period, clipped to its month, in loc.
func (p Period) WeekRange(loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	first := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, loc)
	nextMonth := first.AddDate(0, 1, 0)

	start := first.AddDate(0, 0, (p.WeekOfMonth-1)*7-mondayOffset(first.Weekday()))
	end := start.AddDate(0, 0, 7)

	if start.Before(first) {
		start = first
	}
	if end.After(nextMonth) {
		end = nextMonth
	}
	return start, end
}

// MonthRange returns [first day, first day of next month) in loc.
func MonthRange(year, month int, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return first, first.AddDate(0, 1, 0)
}

func mondayOffset(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
