package store

import (
	"context"
	"fmt"

	"github.com/hyperengineering/ascend/internal/types"
)

// GetUnlockedAchievements returns userID's unlocks, oldest first.
func (s *SQLiteStore) GetUnlockedAchievements(ctx context.Context, userID string) ([]types.UnlockedAchievement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT achievement_id, unlocked_at
		FROM unlocked_achievements
		WHERE user_id = ?
		ORDER BY unlocked_at, rowid
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query unlocked achievements: %w", err)
	}
	defer rows.Close()

	unlocked := []types.UnlockedAchievement{}
	for rows.Next() {
		var u types.UnlockedAchievement
		var date string
		if err := rows.Scan(&u.AchievementID, &date); err != nil {
			return nil, fmt.Errorf("scan unlocked achievement: %w", err)
		}
		if u.UnlockedAt, err = types.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parse unlock date: %w", err)
		}
		unlocked = append(unlocked, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return unlocked, nil
}

// RecordAchievementUnlock persists an unlock. Recording the same unlock
// twice keeps the original date.
func (s *SQLiteStore) RecordAchievementUnlock(ctx context.Context, userID, achievementID string, date types.Date) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO unlocked_achievements (user_id, achievement_id, unlocked_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, achievement_id) DO NOTHING
	`, userID, achievementID, date.String())
	if err != nil {
		return fmt.Errorf("record achievement unlock: %w", err)
	}
	return nil
}
