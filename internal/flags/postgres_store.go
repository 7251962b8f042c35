package flags

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PostgresStore persists flags in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed flags store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) UpsertFlag(ctx context.Context, f *Flag) error {
	overrides, err := json.Marshal(f.Overrides)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO feature_flags (key, enabled, description, overrides, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE
		SET enabled = $2, description = $3, overrides = $4, updated_at = $5
	`, f.Key, f.Enabled, f.Description, overrides, f.UpdatedAt)
	return err
}

func (p *PostgresStore) GetFlag(ctx context.Context, key string) (*Flag, error) {
	f := &Flag{}
	var overrides []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT key, enabled, description, overrides, updated_at FROM feature_flags WHERE key = $1
	`, key).Scan(&f.Key, &f.Enabled, &f.Description, &overrides, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(overrides, &f.Overrides); err != nil {
		return nil, err
	}
	return f, nil
}

func (p *PostgresStore) ListFlags(ctx context.Context) ([]*Flag, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT key, enabled, description, overrides, updated_at FROM feature_flags ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Flag
	for rows.Next() {
		f := &Flag{}
		var overrides []byte
		if err := rows.Scan(&f.Key, &f.Enabled, &f.Description, &overrides, &f.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(overrides, &f.Overrides); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (p *PostgresStore) UpsertExperiment(ctx context.Context, e *Experiment) error {
	variants, err := json.Marshal(e.Variants)
	if err != nil {
		return err
	}
	split, err := json.Marshal(e.Split)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO experiments (key, variants, split, status, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE
		SET variants = $2, split = $3, status = $4, updated_at = $5
	`, e.Key, variants, split, e.Status, e.UpdatedAt)
	return err
}

func (p *PostgresStore) ListExperiments(ctx context.Context) ([]*Experiment, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT key, variants, split, status, updated_at FROM experiments ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Experiment
	for rows.Next() {
		e := &Experiment{}
		var variants, split []byte
		if err := rows.Scan(&e.Key, &variants, &split, &e.Status, &e.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(variants, &e.Variants); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(split, &e.Split); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *PostgresStore) SetKillSwitch(ctx context.Context, module string, disabled bool) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO kill_switches (module, disabled, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (module) DO UPDATE SET disabled = $2, updated_at = NOW()
	`, module, disabled)
	return err
}

func (p *PostgresStore) ListKillSwitches(ctx context.Context) (map[string]bool, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT module, disabled FROM kill_switches`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]bool)
	for rows.Next() {
		var module string
		var disabled bool
		if err := rows.Scan(&module, &disabled); err != nil {
			return nil, err
		}
		out[module] = disabled
	}
	return out, rows.Err()
}

// Migrate creates the flags tables if they don't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS feature_flags (
			key          VARCHAR(128) PRIMARY KEY,
			enabled      BOOLEAN NOT NULL DEFAULT FALSE,
			description  TEXT NOT NULL DEFAULT '',
			overrides    JSONB NOT NULL DEFAULT '{}',
			updated_at   TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS experiments (
			key         VARCHAR(128) PRIMARY KEY,
			variants    JSONB NOT NULL DEFAULT '[]',
			split       JSONB NOT NULL DEFAULT '{}',
			status      VARCHAR(16) NOT NULL DEFAULT 'draft',
			updated_at  TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS kill_switches (
			module      VARCHAR(64) PRIMARY KEY,
			disabled    BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at  TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	return err
}

var _ Store = (*PostgresStore)(nil)
