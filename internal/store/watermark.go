package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hyperengineering/ascend/internal/types"
)

// GetWatermark returns the last reconciled day for userID. The bool is false
// when reconciliation has never run.
func (s *SQLiteStore) GetWatermark(ctx context.Context, userID string) (types.Date, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT last_processed_date FROM watermarks WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Date{}, false, nil
	}
	if err != nil {
		return types.Date{}, false, fmt.Errorf("query watermark: %w", err)
	}
	d, err := types.ParseDate(raw)
	if err != nil {
		return types.Date{}, false, fmt.Errorf("parse watermark: %w", err)
	}
	return d, true, nil
}

// SetWatermark moves userID's watermark to date. The watermark never moves
// backwards; an older date is ignored.
func (s *SQLiteStore) SetWatermark(ctx context.Context, userID string, date types.Date) error {
	return setWatermark(ctx, s.db, userID, date, s.timestamp())
}

func setWatermark(ctx context.Context, q execer, userID string, date types.Date, now string) error {
	// YYYY-MM-DD compares correctly as text.
	_, err := q.ExecContext(ctx, `
		INSERT INTO watermarks (user_id, last_processed_date, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE
		SET last_processed_date = excluded.last_processed_date, updated_at = excluded.updated_at
		WHERE excluded.last_processed_date > watermarks.last_processed_date
	`, userID, date.String(), now)
	if err != nil {
		return fmt.Errorf("set watermark: %w", err)
	}
	return nil
}
