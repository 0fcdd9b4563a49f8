package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperengineering/ascend/internal/types"
	"github.com/oklog/ulid/v2"
)

const habitColumns = `id, user_id, name, frequency_days, is_bad_habit, xp_reward, archived, created_at`

func scanHabit(scanner interface{ Scan(...any) error }) (types.HabitDefinition, error) {
	var h types.HabitDefinition
	var freqJSON, createdAt string
	err := scanner.Scan(&h.ID, &h.UserID, &h.Name, &freqJSON, &h.IsBadHabit, &h.XPReward, &h.Archived, &createdAt)
	if err != nil {
		return types.HabitDefinition{}, err
	}
	if freqJSON != "" {
		if err := json.Unmarshal([]byte(freqJSON), &h.FrequencyDays); err != nil {
			return types.HabitDefinition{}, fmt.Errorf("parse frequency_days JSON: %w", err)
		}
	}
	h.CreatedAt = parseTimestamp(createdAt)
	return h, nil
}

// CreateHabit stores a new habit definition and assigns its id.
func (s *SQLiteStore) CreateHabit(ctx context.Context, h types.HabitDefinition) (types.HabitDefinition, error) {
	if h.FrequencyDays == nil {
		h.FrequencyDays = []int{}
	}
	freq, err := json.Marshal(h.FrequencyDays)
	if err != nil {
		return types.HabitDefinition{}, fmt.Errorf("marshal frequency_days: %w", err)
	}

	h.ID = ulid.Make().String()
	h.CreatedAt = s.now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO habits (`+habitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, h.ID, h.UserID, h.Name, string(freq), h.IsBadHabit, h.XPReward, h.Archived, h.CreatedAt.Format(timeLayout))
	if err != nil {
		return types.HabitDefinition{}, fmt.Errorf("insert habit: %w", err)
	}
	return h, nil
}

// GetHabit returns one of userID's habits, or ErrNotFound.
func (s *SQLiteStore) GetHabit(ctx context.Context, userID, habitID string) (types.HabitDefinition, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+habitColumns+` FROM habits WHERE id = ? AND user_id = ?`, habitID, userID)
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.HabitDefinition{}, ErrNotFound
	}
	if err != nil {
		return types.HabitDefinition{}, fmt.Errorf("scan habit: %w", err)
	}
	return h, nil
}

// ListHabits returns userID's habits in creation order.
func (s *SQLiteStore) ListHabits(ctx context.Context, userID string, includeArchived bool) ([]types.HabitDefinition, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = ?`
	if !includeArchived {
		query += ` AND archived = 0`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query habits: %w", err)
	}
	defer rows.Close()

	habits := []types.HabitDefinition{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return habits, nil
}

// ListActiveHabits returns userID's non-archived habits.
func (s *SQLiteStore) ListActiveHabits(ctx context.Context, userID string) ([]types.HabitDefinition, error) {
	return s.ListHabits(ctx, userID, false)
}

// ArchiveHabit hides a habit from scheduling. Its logs are kept.
func (s *SQLiteStore) ArchiveHabit(ctx context.Context, userID, habitID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE habits SET archived = 1 WHERE id = ? AND user_id = ?`, habitID, userID)
	if err != nil {
		return fmt.Errorf("archive habit: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
