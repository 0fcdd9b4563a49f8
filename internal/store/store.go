package store

import (
	"context"

	"github.com/hyperengineering/ascend/internal/types"
)

// HabitStatusChange describes one user edit of a habit log, together with the
// profile write it implies. Previous is the status the caller saw ("" for no
// entry); Status "" clears the entry.
type HabitStatusChange struct {
	UserID   string
	HabitID  string
	Date     types.Date
	Previous types.HabitStatus
	Status   types.HabitStatus
	Expected types.Profile
	Next     types.Profile
}

// Store defines the persistence contract for progression state.
type Store interface {
	GetProfile(ctx context.Context, userID string) (types.Profile, error)
	GetOrCreateProfile(ctx context.Context, userID string, maxHP int) (types.Profile, error)
	CASUpdateProfile(ctx context.Context, userID string, expected, next types.Profile) error

	CreateHabit(ctx context.Context, h types.HabitDefinition) (types.HabitDefinition, error)
	GetHabit(ctx context.Context, userID, habitID string) (types.HabitDefinition, error)
	ListHabits(ctx context.Context, userID string, includeArchived bool) ([]types.HabitDefinition, error)
	ListActiveHabits(ctx context.Context, userID string) ([]types.HabitDefinition, error)
	ArchiveHabit(ctx context.Context, userID, habitID string) error

	ListHabitLogs(ctx context.Context, habitIDs []string, r types.DateRange) ([]types.HabitLogEntry, error)
	GetHabitLog(ctx context.Context, habitID string, date types.Date) (types.HabitLogEntry, error)
	InsertHabitLogIfAbsent(ctx context.Context, userID string, entry types.HabitLogEntry) (bool, error)
	ListCompletionDates(ctx context.Context, userID string) ([]types.Date, error)

	GetUnlockedAchievements(ctx context.Context, userID string) ([]types.UnlockedAchievement, error)
	RecordAchievementUnlock(ctx context.Context, userID, achievementID string, date types.Date) error

	GetWatermark(ctx context.Context, userID string) (types.Date, bool, error)
	SetWatermark(ctx context.Context, userID string, date types.Date) error

	CommitReconciliation(ctx context.Context, userID string, expected, next types.Profile, watermark types.Date) error
	CommitAchievementUnlocks(ctx context.Context, userID string, expected, next types.Profile, ids []string, date types.Date) error
	CommitHabitStatus(ctx context.Context, change HabitStatusChange) error

	Publish(ctx context.Context, e types.Event) error
	ListEvents(ctx context.Context, userID, afterID string, limit int) ([]types.Event, error)

	SchemaVersion(ctx context.Context) (int64, error)
	GenerateBackup(ctx context.Context, dir string) (string, error)
	Close() error
}
