package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-01")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d != NewDate(2026, time.March, 1) {
		t.Errorf("got %+v", d)
	}
	if d.String() != "2026-03-01" {
		t.Errorf("String() = %q", d.String())
	}

	if _, err := ParseDate("03/01/2026"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestDate_AddDaysCrossesMonthAndLeapDay(t *testing.T) {
	d := NewDate(2028, time.February, 28)
	if got := d.AddDays(1); got != NewDate(2028, time.February, 29) {
		t.Errorf("AddDays(1) = %v", got)
	}
	if got := d.AddDays(2); got != NewDate(2028, time.March, 1) {
		t.Errorf("AddDays(2) = %v", got)
	}
	if got := NewDate(2026, time.January, 1).AddDays(-1); got != NewDate(2025, time.December, 31) {
		t.Errorf("AddDays(-1) = %v", got)
	}
}

func TestDate_DaysUntilAndOrdering(t *testing.T) {
	a := NewDate(2026, time.October, 10)
	b := NewDate(2026, time.October, 15)

	if n := a.DaysUntil(b); n != 5 {
		t.Errorf("DaysUntil = %d, want 5", n)
	}
	if n := b.DaysUntil(a); n != -5 {
		t.Errorf("DaysUntil = %d, want -5", n)
	}
	if !a.Before(b) || b.Before(a) || !b.After(a) {
		t.Error("ordering is wrong")
	}
}

func TestDate_Weekday(t *testing.T) {
	// 2026-10-15 is a Thursday.
	if wd := NewDate(2026, time.October, 15).Weekday(); wd != time.Thursday {
		t.Errorf("Weekday = %v, want Thursday", wd)
	}
}

func TestLogicalDate_RespectsDayStartHour(t *testing.T) {
	loc := time.FixedZone("test", 2*3600)

	early := time.Date(2026, time.October, 15, 3, 30, 0, 0, loc)
	if got := LogicalDate(early, 4); got != NewDate(2026, time.October, 14) {
		t.Errorf("before day start: got %v, want 2026-10-14", got)
	}
	if got := LogicalDate(early, 0); got != NewDate(2026, time.October, 15) {
		t.Errorf("midnight start: got %v, want 2026-10-15", got)
	}

	late := time.Date(2026, time.October, 15, 4, 0, 0, 0, loc)
	if got := LogicalDate(late, 4); got != NewDate(2026, time.October, 15) {
		t.Errorf("at day start: got %v, want 2026-10-15", got)
	}
}

func TestDateRange_Days(t *testing.T) {
	r := DateRange{From: NewDate(2026, time.October, 12), To: NewDate(2026, time.October, 14)}
	days := r.Days()
	if len(days) != 3 {
		t.Fatalf("len = %d, want 3", len(days))
	}
	if days[0] != r.From || days[2] != r.To {
		t.Errorf("days = %v", days)
	}
	if !r.Contains(NewDate(2026, time.October, 13)) || r.Contains(NewDate(2026, time.October, 15)) {
		t.Error("Contains is wrong")
	}

	empty := DateRange{From: r.To, To: r.From}
	if !empty.Empty() || empty.Days() != nil {
		t.Error("reversed range should be empty")
	}
}

func TestDate_JSON(t *testing.T) {
	entry := HabitLogEntry{HabitID: "h1", Date: NewDate(2026, time.October, 1), Status: StatusMissed}
	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"date":"2026-10-01"`) {
		t.Errorf("unexpected JSON: %s", data)
	}

	var decoded HabitLogEntry
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded != entry {
		t.Errorf("decoded = %+v, want %+v", decoded, entry)
	}

	var zero struct {
		D Date `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d":null}`), &zero); err != nil || !zero.D.IsZero() {
		t.Errorf("null date: %v %+v", err, zero.D)
	}
}

func TestParseHabitStatus(t *testing.T) {
	s, err := ParseHabitStatus(" Completed ")
	if err != nil || s != StatusCompleted {
		t.Errorf("got %q, %v", s, err)
	}
	if _, err := ParseHabitStatus("done"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestHabitDefinition_DueOn(t *testing.T) {
	h := HabitDefinition{FrequencyDays: []int{1, 3, 5}}
	if !h.DueOn(time.Monday) || h.DueOn(time.Sunday) {
		t.Error("DueOn is wrong")
	}
}

func TestHabitDefinition_MarshalsEmptyFrequency(t *testing.T) {
	data, err := json.Marshal(HabitDefinition{ID: "h1"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"frequency_days":[]`) {
		t.Errorf("expected empty array, got %s", data)
	}
}
