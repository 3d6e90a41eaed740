// Package postgres implements the activity log store on PostgreSQL. The
// BIGSERIAL primary key is the linearizable sequence counter and the
// database clock assigns timestamps, so concurrent appends never collide.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"pactum/internal/activity"
)

type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL activity log store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the activity_logs table and its feed indexes.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS activity_logs (
			seq         BIGSERIAL PRIMARY KEY,
			id          UUID NOT NULL UNIQUE,
			entity_type TEXT NOT NULL,
			entity_id   TEXT NOT NULL,
			action      TEXT NOT NULL,
			changes     JSONB NOT NULL DEFAULT '{}',
			user_id     TEXT NOT NULL,
			user_name   TEXT NOT NULL,
			timestamp   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_logs_ts
			ON activity_logs (timestamp DESC, seq DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_logs_entity_ts
			ON activity_logs (entity_type, timestamp DESC, seq DESC)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate activity_logs: %w", err)
		}
	}
	return nil
}

// Append inserts one event. Sequence and timestamp come back from the insert
// so the returned event is exactly what later reads will see.
func (s *Store) Append(ctx context.Context, event activity.Event) (activity.Event, error) {
	changes, err := json.Marshal(event.Changes)
	if err != nil {
		return activity.Event{}, fmt.Errorf("marshal changes: %w", err)
	}

	query := `
		INSERT INTO activity_logs (id, entity_type, entity_id, action, changes, user_id, user_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING seq, timestamp
	`
	err = s.db.QueryRowContext(ctx, query,
		event.ID,
		string(event.EntityType),
		event.EntityID,
		string(event.Action),
		changes,
		event.UserID,
		event.UserName,
	).Scan(&event.Seq, &event.Timestamp)
	if err != nil {
		return activity.Event{}, fmt.Errorf("insert activity log: %w", err)
	}
	return event, nil
}

// List returns events ordered newest-first, optionally filtered by entity
// type and bounded below by the retention cutoff.
func (s *Store) List(ctx context.Context, filter activity.Filter) ([]activity.Event, error) {
	query := `
		SELECT id, entity_type, entity_id, action, changes, user_id, user_name, timestamp, seq
		FROM activity_logs
	`
	var (
		conditions []string
		args       []any
	)
	if filter.EntityType != "" {
		args = append(args, string(filter.EntityType))
		conditions = append(conditions, "entity_type = $"+strconv.Itoa(len(args)))
	}
	if !filter.NotBefore.IsZero() {
		args = append(args, filter.NotBefore)
		conditions = append(conditions, "timestamp >= $"+strconv.Itoa(len(args)))
	}
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY timestamp DESC, seq DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activity logs: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// DeleteOlderThan removes at most limit events older than cutoff. The
// subselect keeps each delete to a bounded batch so sweeps never hold long
// write locks.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	query := `
		DELETE FROM activity_logs
		WHERE seq IN (
			SELECT seq FROM activity_logs
			WHERE timestamp < $1
			ORDER BY seq
			LIMIT $2
		)
	`
	result, err := s.db.ExecContext(ctx, query, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("delete expired activity logs: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted activity logs: %w", err)
	}
	return deleted, nil
}

func scanEvents(rows *sql.Rows) ([]activity.Event, error) {
	var events []activity.Event
	for rows.Next() {
		var (
			event      activity.Event
			entityType string
			action     string
			changes    []byte
		)
		err := rows.Scan(
			&event.ID,
			&entityType,
			&event.EntityID,
			&action,
			&changes,
			&event.UserID,
			&event.UserName,
			&event.Timestamp,
			&event.Seq,
		)
		if err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		event.EntityType = activity.EntityType(entityType)
		event.Action = activity.Action(action)
		if err := json.Unmarshal(changes, &event.Changes); err != nil {
			return nil, fmt.Errorf("unmarshal changes: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity logs: %w", err)
	}
	return events, nil
}
