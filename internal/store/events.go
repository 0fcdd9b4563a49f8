package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hyperengineering/ascend/internal/types"
	"github.com/oklog/ulid/v2"
)

// defaultEventLimit caps ListEvents when the caller passes no limit.
const defaultEventLimit = 100

// Publish appends e to the user's event log. Events get a ULID so ids sort
// in publication order.
func (s *SQLiteStore) Publish(ctx context.Context, e types.Event) error {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	createdAt := s.timestamp()
	if !e.CreatedAt.IsZero() {
		createdAt = e.CreatedAt.UTC().Format(timeLayout)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, user_id, type, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.UserID, string(e.Type), string(payload), createdAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// ListEvents returns userID's events with an id greater than afterID, oldest
// first. An empty afterID lists from the beginning.
func (s *SQLiteStore) ListEvents(ctx context.Context, userID, afterID string, limit int) ([]types.Event, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, payload, created_at
		FROM events
		WHERE user_id = ? AND id > ?
		ORDER BY id
		LIMIT ?
	`, userID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []types.Event{}
	for rows.Next() {
		var e types.Event
		var typ, payload, createdAt string
		if err := rows.Scan(&e.ID, &e.UserID, &typ, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = types.EventType(typ)
		if err := json.Unmarshal([]byte(payload), &e.Payload); err != nil {
			return nil, fmt.Errorf("parse event payload: %w", err)
		}
		e.CreatedAt = parseTimestamp(createdAt)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return events, nil
}
