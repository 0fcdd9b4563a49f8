package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hyperengineering/ascend/internal/types"
)

const profileColumns = `user_id, level, xp, hp, max_hp, day_start_hour`

func scanProfile(row *sql.Row) (types.Profile, error) {
	var p types.Profile
	err := row.Scan(&p.UserID, &p.Level, &p.XP, &p.HP, &p.MaxHP, &p.DayStartHour)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Profile{}, ErrNotFound
	}
	if err != nil {
		return types.Profile{}, fmt.Errorf("scan profile: %w", err)
	}
	return p, nil
}

func getProfile(ctx context.Context, q execer, userID string) (types.Profile, error) {
	return scanProfile(q.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`, userID))
}

// GetProfile returns the profile for userID, or ErrNotFound.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (types.Profile, error) {
	return getProfile(ctx, s.db, userID)
}

// GetOrCreateProfile returns the profile for userID, creating a fresh level 1
// profile with full HP on first access.
func (s *SQLiteStore) GetOrCreateProfile(ctx context.Context, userID string, maxHP int) (types.Profile, error) {
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, level, xp, hp, max_hp, day_start_hour, created_at, updated_at)
		VALUES (?, 1, 0, ?, ?, 0, ?, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, userID, maxHP, maxHP, now, now)
	if err != nil {
		return types.Profile{}, fmt.Errorf("create profile: %w", err)
	}
	return s.GetProfile(ctx, userID)
}

// CASUpdateProfile writes next only if the stored row still equals expected.
// It returns ErrConflict if the row changed and ErrNotFound if it is gone.
func (s *SQLiteStore) CASUpdateProfile(ctx context.Context, userID string, expected, next types.Profile) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.casProfile(ctx, tx, userID, expected, next)
	})
}

func (s *SQLiteStore) casProfile(ctx context.Context, tx *sql.Tx, userID string, expected, next types.Profile) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE profiles
		SET level = ?, xp = ?, hp = ?, max_hp = ?, day_start_hour = ?, updated_at = ?
		WHERE user_id = ?
		  AND level = ? AND xp = ? AND hp = ? AND max_hp = ? AND day_start_hour = ?
	`,
		next.Level, next.XP, next.HP, next.MaxHP, next.DayStartHour, s.timestamp(),
		userID,
		expected.Level, expected.XP, expected.HP, expected.MaxHP, expected.DayStartHour,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	if _, err := getProfile(ctx, tx, userID); err != nil {
		return err
	}
	return ErrConflict
}
