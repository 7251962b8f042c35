package game

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore persists the catalogue in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed catalogue store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Game, error) {
	g := &Game{}
	err := p.db.QueryRowContext(ctx, `
		SELECT id, name, provider, rtp_bps, status, tags, created_at, updated_at
		FROM games WHERE id = $1
	`, id).Scan(&g.ID, &g.Name, &g.Provider, &g.RTPBps, &g.Status, pq.Array(&g.Tags), &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (p *PostgresStore) Put(ctx context.Context, g *Game) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO games (id, name, provider, rtp_bps, status, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET name = $2, provider = $3, rtp_bps = $4, status = $5, tags = $6, updated_at = $8
	`, g.ID, g.Name, g.Provider, g.RTPBps, g.Status, pq.Array(g.Tags), g.CreatedAt, g.UpdatedAt)
	return err
}

func (p *PostgresStore) List(ctx context.Context, f Filter) ([]*Game, error) {
	query := `
		SELECT id, name, provider, rtp_bps, status, tags, created_at, updated_at
		FROM games WHERE 1=1
	`
	args := []any{}
	idx := 1
	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Provider != "" {
		query += fmt.Sprintf(" AND provider = $%d", idx)
		args = append(args, f.Provider)
		idx++
	}
	if f.Query != "" {
		query += fmt.Sprintf(" AND name ILIKE $%d", idx)
		args = append(args, "%"+f.Query+"%")
		idx++
	}
	query += " ORDER BY name ASC"

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Game
	for rows.Next() {
		g := &Game{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Provider, &g.RTPBps, &g.Status, pq.Array(&g.Tags), &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Migrate creates the games table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS games (
			id          VARCHAR(64) PRIMARY KEY,
			name        VARCHAR(255) NOT NULL,
			provider    VARCHAR(128) NOT NULL,
			rtp_bps     INT NOT NULL DEFAULT 0,
			status      VARCHAR(16) NOT NULL,
			tags        TEXT[] NOT NULL DEFAULT '{}',
			created_at  TIMESTAMPTZ DEFAULT NOW(),
			updated_at  TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_games_status ON games(status)
	`)
	return err
}

var _ Store = (*PostgresStore)(nil)
