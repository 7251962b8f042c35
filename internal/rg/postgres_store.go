package rg

import (
	"context"
	"database/sql"
	"errors"
)

// PostgresStore persists RG data in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed RG store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) GetLimits(ctx context.Context, playerID string) (*Limits, error) {
	l := &Limits{}
	err := p.db.QueryRowContext(ctx, `
		SELECT player_id, deposit_daily_cents, loss_daily_cents, session_minutes, updated_at
		FROM rg_limits WHERE player_id = $1
	`, playerID).Scan(&l.PlayerID, &l.DepositDailyCents, &l.LossDailyCents, &l.SessionMinutes, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (p *PostgresStore) PutLimits(ctx context.Context, l *Limits) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO rg_limits (player_id, deposit_daily_cents, loss_daily_cents, session_minutes, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (player_id) DO UPDATE
		SET deposit_daily_cents = $2, loss_daily_cents = $3, session_minutes = $4, updated_at = $5
	`, l.PlayerID, l.DepositDailyCents, l.LossDailyCents, l.SessionMinutes, l.UpdatedAt)
	return err
}

func (p *PostgresStore) GetExclusion(ctx context.Context, playerID string) (*Exclusion, error) {
	e := &Exclusion{}
	var until sql.NullTime
	err := p.db.QueryRowContext(ctx, `
		SELECT player_id, kind, until, created_at FROM rg_exclusions WHERE player_id = $1
	`, playerID).Scan(&e.PlayerID, &e.Kind, &until, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if until.Valid {
		e.Until = &until.Time
	}
	return e, nil
}

func (p *PostgresStore) PutExclusion(ctx context.Context, e *Exclusion) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO rg_exclusions (player_id, kind, until, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (player_id) DO UPDATE
		SET kind = $2, until = $3, created_at = $4
	`, e.PlayerID, e.Kind, e.Until, e.CreatedAt)
	return err
}

// Migrate creates the RG tables if they don't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS rg_limits (
			player_id            VARCHAR(36) PRIMARY KEY,
			deposit_daily_cents  BIGINT NOT NULL DEFAULT 0,
			loss_daily_cents     BIGINT NOT NULL DEFAULT 0,
			session_minutes      INT NOT NULL DEFAULT 0,
			updated_at           TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS rg_exclusions (
			player_id   VARCHAR(36) PRIMARY KEY,
			kind        VARCHAR(16) NOT NULL,
			until       TIMESTAMPTZ,
			created_at  TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	return err
}

var _ Store = (*PostgresStore)(nil)
