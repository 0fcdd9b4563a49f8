package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hyperengineering/ascend/internal/types"
	"github.com/oklog/ulid/v2"
)

// CommitReconciliation applies a reconciliation result atomically: the
// profile compare-and-swap (skipped when nothing changed) and the watermark
// advance land together or not at all.
func (s *SQLiteStore) CommitReconciliation(ctx context.Context, userID string, expected, next types.Profile, watermark types.Date) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if expected != next {
			if err := s.casProfile(ctx, tx, userID, expected, next); err != nil {
				return err
			}
		}
		return setWatermark(ctx, tx, userID, watermark, s.timestamp())
	})
}

// CommitAchievementUnlocks records ids as unlocked on date and writes the
// rewarded profile in one transaction. If any id is already recorded another
// pass got there first and ErrConflict is returned.
func (s *SQLiteStore) CommitAchievementUnlocks(ctx context.Context, userID string, expected, next types.Profile, ids []string, date types.Date) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			result, err := tx.ExecContext(ctx, `
				INSERT INTO unlocked_achievements (user_id, achievement_id, unlocked_at)
				VALUES (?, ?, ?)
				ON CONFLICT(user_id, achievement_id) DO NOTHING
			`, userID, id, date.String())
			if err != nil {
				return fmt.Errorf("record achievement unlock: %w", err)
			}
			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("get rows affected: %w", err)
			}
			if rowsAffected == 0 {
				return fmt.Errorf("achievement %s already unlocked: %w", id, ErrConflict)
			}
		}
		if expected == next {
			return nil
		}
		return s.casProfile(ctx, tx, userID, expected, next)
	})
}

// CommitHabitStatus writes a user's status change for one habit-day and the
// matching profile update together. The stored status must still be
// change.Previous, otherwise ErrConflict.
func (s *SQLiteStore) CommitHabitStatus(ctx context.Context, change HabitStatusChange) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var current types.HabitStatus
		existing, err := getHabitLog(ctx, tx, change.HabitID, change.Date)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		default:
			current = existing.Status
		}
		if current != change.Previous {
			return fmt.Errorf("habit log changed from %q to %q: %w", change.Previous, current, ErrConflict)
		}

		now := s.timestamp()
		if change.Status == "" {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM habit_logs WHERE habit_id = ? AND date = ?`,
				change.HabitID, change.Date.String()); err != nil {
				return fmt.Errorf("delete habit log: %w", err)
			}
		} else {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO habit_logs (id, habit_id, user_id, date, status, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(habit_id, date) DO UPDATE
				SET status = excluded.status, updated_at = excluded.updated_at
			`, ulid.Make().String(), change.HabitID, change.UserID, change.Date.String(), string(change.Status), now, now)
			if err != nil {
				return fmt.Errorf("upsert habit log: %w", err)
			}
		}

		if change.Expected == change.Next {
			return nil
		}
		return s.casProfile(ctx, tx, change.UserID, change.Expected, change.Next)
	})
}
