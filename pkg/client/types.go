package client

import (
	"net/http"
	"time"
)

// Config holds the client configuration.
type Config struct {
	BaseURL      string        // Ascend service URL, e.g. http://localhost:8080
	APIKey       string        // API key for authentication
	HTTPClient   *http.Client  // Optional; default has a 30s timeout
	MaxRetries   int           // Retries for idempotent calls on 503 or transport errors (default: 2)
	RetryBackoff time.Duration // Delay between retries (default: 200ms)
}

// Profile is a user's progression state.
type Profile struct {
	UserID       string `json:"user_id"`
	Level        int    `json:"level"`
	XP           int    `json:"xp"`
	HP           int    `json:"hp"`
	MaxHP        int    `json:"max_hp"`
	DayStartHour int    `json:"day_start_hour"`
}

// Change is the before and after of a profile write.
type Change struct {
	Before Profile `json:"before"`
	After  Profile `json:"after"`
}

// Habit is a recurring habit definition.
type Habit struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	FrequencyDays []int     `json:"frequency_days"`
	IsBadHabit    bool      `json:"is_bad_habit"`
	XPReward      int       `json:"xp_reward"`
	Archived      bool      `json:"archived"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateHabitParams holds parameters for creating a habit.
type CreateHabitParams struct {
	Name          string `json:"name"`
	FrequencyDays []int  `json:"frequency_days"` // weekdays, Sunday = 0
	IsBadHabit    bool   `json:"is_bad_habit"`
	XPReward      int    `json:"xp_reward"` // 0 means the server default
}

// Status values accepted by SetHabitStatus. An empty status clears the day.
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusSkipped   = "skipped"
	StatusMissed    = "missed"
)

// Unlock is one achievement decision from an evaluation pass.
type Unlock struct {
	AchievementID string  `json:"achievement_id"`
	Unlocked      bool    `json:"unlocked"`
	NewlyUnlocked bool    `json:"newly_unlocked"`
	Progress      float64 `json:"progress"`
	XPReward      int     `json:"xp_reward"`
}

// HabitStatusResult is the outcome of SetHabitStatus.
type HabitStatusResult struct {
	HabitID  string   `json:"habit_id"`
	Date     string   `json:"date"`
	Previous string   `json:"previous"`
	Status   string   `json:"status"`
	XPDelta  int      `json:"xp_delta"`
	Profile  Profile  `json:"profile"`
	Unlocked []Unlock `json:"unlocked"`
}

// DateRange is an inclusive range of YYYY-MM-DD days.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Reconciliation summarizes one missed-day reconciliation run.
type Reconciliation struct {
	State       string    `json:"state"`
	Baseline    bool      `json:"baseline"`
	Range       DateRange `json:"range"`
	Inserted    int       `json:"inserted"`
	MissedCount int       `json:"missed_count"`
	Penalty     int       `json:"penalty"`
	Before      Profile   `json:"before"`
	After       Profile   `json:"after"`
	Watermark   string    `json:"watermark"`
}

// OpenResult is the outcome of OpenApp.
type OpenResult struct {
	Date           string         `json:"date"`
	Reconciliation Reconciliation `json:"reconciliation"`
	Unlocked       []Unlock       `json:"unlocked"`
	Profile        Profile        `json:"profile"`
}

// Condition is an achievement unlock rule: metric op target.
type Condition struct {
	Metric string `json:"metric"`
	Op     string `json:"op"`
	Target int    `json:"target"`
}

// Achievement is a registry entry.
type Achievement struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Emoji       string    `json:"emoji"`
	Category    string    `json:"category"`
	Rarity      string    `json:"rarity"`
	XPReward    int       `json:"xp_reward"`
	Condition   Condition `json:"condition"`
}

// AchievementStatus is an achievement as seen by one user.
type AchievementStatus struct {
	Achievement
	Unlocked   bool    `json:"unlocked"`
	UnlockedAt string  `json:"unlocked_at"`
	Progress   float64 `json:"progress"`
}

// Event types.
const (
	EventHabitsMissed        = "habits_missed"
	EventLevelDown           = "level_down"
	EventLevelUp             = "level_up"
	EventAchievementUnlocked = "achievement_unlocked"
)

// EventPayload carries the fields relevant to an event's type.
type EventPayload struct {
	TotalMissedCount int    `json:"total_missed_count,omitempty"`
	TotalPenalty     int    `json:"total_penalty,omitempty"`
	LevelBefore      int    `json:"level_before,omitempty"`
	LevelAfter       int    `json:"level_after,omitempty"`
	AchievementID    string `json:"achievement_id,omitempty"`
	XPReward         int    `json:"xp_reward,omitempty"`
}

// Event is a notification published by the engine.
type Event struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	Type      string       `json:"type"`
	Payload   EventPayload `json:"payload"`
	CreatedAt time.Time    `json:"created_at"`
}

// Health is the service health report.
type Health struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Achievements  int    `json:"achievements"`
	SchemaVersion int64  `json:"schema_version"`
}
