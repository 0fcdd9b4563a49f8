package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for calendar days.
const DateLayout = "2006-01-02"

// Date is a calendar day without time of day or zone.
// The zero value means "no date".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the normalized date for y-m-d (out-of-range days roll over like time.Date).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// LogicalDate returns the user's "day" for the instant now: hours before
// dayStartHour still belong to the previous day. now must already be in the
// user's location.
func LogicalDate(now time.Time, dayStartHour int) Date {
	if dayStartHour > 0 && now.Hour() < dayStartHour {
		now = now.AddDate(0, 0, -1)
	}
	return DateOf(now)
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Time().Format(DateLayout)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Weekday returns the day of week, Sunday = 0.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

func (d Date) Before(o Date) bool { return d.Time().Before(o.Time()) }
func (d Date) After(o Date) bool  { return d.Time().After(o.Time()) }

// DaysUntil returns the number of days from d to o (negative if o is earlier).
func (d Date) DaysUntil(o Date) int {
	return int(o.Time().Sub(d.Time()).Hours() / 24)
}

// MarshalJSON encodes the date as "YYYY-MM-DD", or null for the zero date.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "YYYY-MM-DD", "" and null.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From Date `json:"from"`
	To   Date `json:"to"`
}

// Empty reports whether the range contains no days.
func (r DateRange) Empty() bool {
	return r.From.IsZero() || r.To.IsZero() || r.To.Before(r.From)
}

// Days returns every day in the range, oldest first.
func (r DateRange) Days() []Date {
	if r.Empty() {
		return nil
	}
	n := r.From.DaysUntil(r.To) + 1
	days := make([]Date, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, r.From.AddDays(i))
	}
	return days
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d Date) bool {
	if r.Empty() {
		return false
	}
	return !d.Before(r.From) && !d.After(r.To)
}
