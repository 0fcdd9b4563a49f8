package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Profile is a user's progression state. Mutated only through the ledger.
type Profile struct {
	UserID       string `json:"user_id"`
	Level        int    `json:"level"`
	XP           int    `json:"xp"`
	HP           int    `json:"hp"`
	MaxHP        int    `json:"max_hp"`
	DayStartHour int    `json:"day_start_hour"`
}

// HabitStatus is the outcome recorded for a habit on a day.
type HabitStatus string

const (
	StatusCompleted HabitStatus = "completed"
	StatusPartial   HabitStatus = "partial"
	StatusSkipped   HabitStatus = "skipped"
	StatusMissed    HabitStatus = "missed"
)

// IsValid reports whether s is one of the known statuses.
func (s HabitStatus) IsValid() bool {
	switch s {
	case StatusCompleted, StatusPartial, StatusSkipped, StatusMissed:
		return true
	default:
		return false
	}
}

// ParseHabitStatus normalizes and validates a status string.
func ParseHabitStatus(input string) (HabitStatus, error) {
	s := HabitStatus(strings.TrimSpace(strings.ToLower(input)))
	if !s.IsValid() {
		return "", fmt.Errorf("invalid habit status: %q", input)
	}
	return s, nil
}

// HabitDefinition describes a recurring habit.
type HabitDefinition struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	FrequencyDays []int     `json:"frequency_days"` // weekdays, Sunday = 0
	IsBadHabit    bool      `json:"is_bad_habit"`
	XPReward      int       `json:"xp_reward"`
	Archived      bool      `json:"archived"`
	CreatedAt     time.Time `json:"created_at"`
}

// DueOn reports whether the habit is scheduled on the given weekday.
func (h HabitDefinition) DueOn(wd time.Weekday) bool {
	for _, d := range h.FrequencyDays {
		if d == int(wd) {
			return true
		}
	}
	return false
}

// MarshalJSON ensures a nil FrequencyDays marshals as [] not null.
func (h HabitDefinition) MarshalJSON() ([]byte, error) {
	if h.FrequencyDays == nil {
		h.FrequencyDays = []int{}
	}
	type Alias HabitDefinition
	return json.Marshal(Alias(h))
}

// HabitLogEntry is the recorded status of one habit on one day.
// Unique per (HabitID, Date).
type HabitLogEntry struct {
	ID      string      `json:"id,omitempty"`
	HabitID string      `json:"habit_id"`
	Date    Date        `json:"date"`
	Status  HabitStatus `json:"status"`
}

// UnlockedAchievement records that a user earned an achievement. Never removed.
type UnlockedAchievement struct {
	AchievementID string `json:"achievement_id"`
	UnlockedAt    Date   `json:"unlocked_at"`
}

// EventType identifies a notification the UI turns into a toast.
type EventType string

const (
	EventHabitsMissed        EventType = "habits_missed"
	EventLevelDown           EventType = "level_down"
	EventLevelUp             EventType = "level_up"
	EventAchievementUnlocked EventType = "achievement_unlocked"
)

// EventPayload carries the structured data of an Event. Only the fields
// relevant to the event type are set.
type EventPayload struct {
	TotalMissedCount int    `json:"total_missed_count,omitempty"`
	TotalPenalty     int    `json:"total_penalty,omitempty"`
	LevelBefore      int    `json:"level_before,omitempty"`
	LevelAfter       int    `json:"level_after,omitempty"`
	AchievementID    string `json:"achievement_id,omitempty"`
	XPReward         int    `json:"xp_reward,omitempty"`
}

// Event is emitted by the engine for UI collaborators.
type Event struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Type      EventType    `json:"type"`
	Payload   EventPayload `json:"payload"`
	CreatedAt time.Time    `json:"created_at"`
}

// --- API request/response shapes ---

// DeltaRequest carries a signed XP or HP change.
type DeltaRequest struct {
	Delta int `json:"delta"`
}

// OpenAppRequest triggers reconciliation for a logical date.
// Date is optional; the server derives it from its clock and the profile's day start hour.
type OpenAppRequest struct {
	Date string `json:"date,omitempty"`
}

// CreateHabitRequest creates a habit definition.
type CreateHabitRequest struct {
	Name          string `json:"name"`
	FrequencyDays []int  `json:"frequency_days"`
	IsBadHabit    bool   `json:"is_bad_habit"`
	XPReward      int    `json:"xp_reward"`
}

// HabitStatusRequest sets or clears (empty status) a habit's status for a day.
type HabitStatusRequest struct {
	Status string `json:"status"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Achievements  int    `json:"achievements"`
	SchemaVersion int64  `json:"schema_version"`
}
