package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PostgresStore persists audit events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed audit store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Append(ctx context.Context, e *Event) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, actor_id, actor_email, action, resource_type, resource_id, before, after, reason, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, e.ID, e.ActorID, e.ActorEmail, e.Action, e.ResourceType, e.ResourceID,
		nullableBytes(e.Before), nullableBytes(e.After), e.Reason, e.RequestID, e.CreatedAt)
	return err
}

func (p *PostgresStore) List(ctx context.Context, f Filter) ([]*Event, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ActorID != "" {
		add("actor_id = $%d", f.ActorID)
	}
	if f.Action != "" {
		add("action = $%d", f.Action)
	}
	if f.ResourceType != "" {
		add("resource_type = $%d", f.ResourceType)
	}
	if f.ResourceID != "" {
		add("resource_id = $%d", f.ResourceID)
	}
	if f.After != nil {
		add("created_at < $%d", *f.After)
	}

	query := `
		SELECT id, actor_id, actor_email, action, resource_type, resource_id, before, after, reason, request_id, created_at
		FROM audit_events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		var before, after []byte
		var reason, requestID sql.NullString
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorEmail, &e.Action, &e.ResourceType, &e.ResourceID,
			&before, &after, &reason, &requestID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Before = before
		e.After = after
		e.Reason = reason.String
		e.RequestID = requestID.String
		events = append(events, e)
	}
	return events, rows.Err()
}

// Migrate creates the audit_events table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			id             VARCHAR(36) PRIMARY KEY,
			actor_id       VARCHAR(36) NOT NULL,
			actor_email    VARCHAR(255) NOT NULL,
			action         VARCHAR(64) NOT NULL,
			resource_type  VARCHAR(32) NOT NULL,
			resource_id    VARCHAR(64) NOT NULL,
			before         JSONB,
			after          JSONB,
			reason         TEXT,
			request_id     VARCHAR(64),
			created_at     TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_audit_events_resource ON audit_events(resource_type, resource_id);
		CREATE INDEX IF NOT EXISTS idx_audit_events_created ON audit_events(created_at DESC);
	`)
	return err
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

var _ Store = (*PostgresStore)(nil)
