package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperengineering/ascend/internal/types"
	"github.com/oklog/ulid/v2"
)

func scanHabitLog(scanner interface{ Scan(...any) error }) (types.HabitLogEntry, error) {
	var e types.HabitLogEntry
	var date, status string
	if err := scanner.Scan(&e.ID, &e.HabitID, &date, &status); err != nil {
		return types.HabitLogEntry{}, err
	}
	d, err := types.ParseDate(date)
	if err != nil {
		return types.HabitLogEntry{}, fmt.Errorf("parse log date: %w", err)
	}
	e.Date = d
	e.Status = types.HabitStatus(status)
	return e, nil
}

// ListHabitLogs returns the log entries of habitIDs within r, in one query.
func (s *SQLiteStore) ListHabitLogs(ctx context.Context, habitIDs []string, r types.DateRange) ([]types.HabitLogEntry, error) {
	entries := []types.HabitLogEntry{}
	if len(habitIDs) == 0 || r.Empty() {
		return entries, nil
	}

	args := make([]any, 0, len(habitIDs)+2)
	for _, id := range habitIDs {
		args = append(args, id)
	}
	args = append(args, r.From.String(), r.To.String())

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(habitIDs)), ",")
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, habit_id, date, status
		FROM habit_logs
		WHERE habit_id IN (`+placeholders+`) AND date BETWEEN ? AND ?
		ORDER BY date, habit_id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query habit logs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanHabitLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit log: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

// GetHabitLog returns the entry for habitID on date, or ErrNotFound.
func (s *SQLiteStore) GetHabitLog(ctx context.Context, habitID string, date types.Date) (types.HabitLogEntry, error) {
	return getHabitLog(ctx, s.db, habitID, date)
}

func getHabitLog(ctx context.Context, q execer, habitID string, date types.Date) (types.HabitLogEntry, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, habit_id, date, status FROM habit_logs WHERE habit_id = ? AND date = ?`,
		habitID, date.String())
	e, err := scanHabitLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.HabitLogEntry{}, ErrNotFound
	}
	if err != nil {
		return types.HabitLogEntry{}, fmt.Errorf("scan habit log: %w", err)
	}
	return e, nil
}

// InsertHabitLogIfAbsent writes entry unless the habit already has one for
// that day. It reports whether a row was inserted; an existing row is never
// overwritten.
func (s *SQLiteStore) InsertHabitLogIfAbsent(ctx context.Context, userID string, entry types.HabitLogEntry) (bool, error) {
	if entry.ID == "" {
		entry.ID = ulid.Make().String()
	}
	now := s.timestamp()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO habit_logs (id, habit_id, user_id, date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(habit_id, date) DO NOTHING
	`, entry.ID, entry.HabitID, userID, entry.Date.String(), string(entry.Status), now, now)
	if err != nil {
		return false, fmt.Errorf("insert habit log: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListCompletionDates returns the date of every completed log of userID.
func (s *SQLiteStore) ListCompletionDates(ctx context.Context, userID string) ([]types.Date, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date FROM habit_logs
		WHERE user_id = ? AND status = ?
		ORDER BY date
	`, userID, string(types.StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	defer rows.Close()

	dates := []types.Date{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		d, err := types.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("parse completion date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return dates, nil
}
