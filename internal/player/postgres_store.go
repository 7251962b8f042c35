package player

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore persists players in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed player store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const playerCols = `id, tenant_id, email, username, password_hash, status, kyc_status, country, vip_level, risk_score, token_version, last_login_at, created_at, updated_at`

func (p *PostgresStore) Create(ctx context.Context, pl *Player) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO players (`+playerCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, pl.ID, nullStr(pl.TenantID), pl.Email, pl.Username, pl.PasswordHash, pl.Status,
		pl.KYCStatus, nullStr(pl.Country), pl.VIPLevel, pl.RiskScore, pl.TokenVersion,
		pl.LastLoginAt, pl.CreatedAt, pl.UpdatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Player, error) {
	return scanPlayer(p.db.QueryRowContext(ctx, `SELECT `+playerCols+` FROM players WHERE id = $1`, id))
}

func (p *PostgresStore) GetByEmail(ctx context.Context, email string) (*Player, error) {
	return scanPlayer(p.db.QueryRowContext(ctx, `SELECT `+playerCols+` FROM players WHERE email = $1`, email))
}

func (p *PostgresStore) Update(ctx context.Context, pl *Player) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE players
		SET status = $1, kyc_status = $2, country = $3, vip_level = $4, risk_score = $5,
		    token_version = $6, last_login_at = $7, username = $8, updated_at = $9
		WHERE id = $10
	`, pl.Status, pl.KYCStatus, nullStr(pl.Country), pl.VIPLevel, pl.RiskScore,
		pl.TokenVersion, pl.LastLoginAt, pl.Username, pl.UpdatedAt, pl.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context, f Filter) ([]*Player, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + playerCols + ` FROM players WHERE 1=1`
	var args []any
	if f.TenantID != "" {
		args = append(args, f.TenantID)
		query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Country != "" {
		args = append(args, f.Country)
		query += fmt.Sprintf(" AND country = $%d", len(args))
	}
	if f.VIPMin > 0 {
		args = append(args, f.VIPMin)
		query += fmt.Sprintf(" AND vip_level >= $%d", len(args))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		query += fmt.Sprintf(" AND (email ILIKE $%d OR username ILIKE $%d)", len(args), len(args))
	}
	if f.Before != nil {
		args = append(args, *f.Before)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Player
	for rows.Next() {
		pl, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pl)
	}
	return out, rows.Err()
}

func (p *PostgresStore) AddNote(ctx context.Context, n *Note) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO player_notes (id, player_id, author_id, author_email, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.ID, n.PlayerID, n.AuthorID, n.AuthorEmail, n.Body, n.CreatedAt)
	return err
}

func (p *PostgresStore) ListNotes(ctx context.Context, playerID string) ([]*Note, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, player_id, author_id, author_email, body, created_at
		FROM player_notes WHERE player_id = $1 ORDER BY created_at DESC
	`, playerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Note
	for rows.Next() {
		n := &Note{}
		if err := rows.Scan(&n.ID, &n.PlayerID, &n.AuthorID, &n.AuthorEmail, &n.Body, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Migrate creates the player tables if they don't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS players (
			id             VARCHAR(36) PRIMARY KEY,
			tenant_id      VARCHAR(36),
			email          VARCHAR(255) UNIQUE NOT NULL,
			username       VARCHAR(64) NOT NULL,
			password_hash  VARCHAR(255) NOT NULL,
			status         VARCHAR(16) NOT NULL DEFAULT 'active',
			kyc_status     VARCHAR(16) NOT NULL DEFAULT 'none',
			country        VARCHAR(2),
			vip_level      INT NOT NULL DEFAULT 0,
			risk_score     INT NOT NULL DEFAULT 0,
			token_version  INT NOT NULL DEFAULT 0,
			last_login_at  TIMESTAMPTZ,
			created_at     TIMESTAMPTZ DEFAULT NOW(),
			updated_at     TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_players_tenant ON players(tenant_id, created_at DESC);
		CREATE TABLE IF NOT EXISTS player_notes (
			id            VARCHAR(36) PRIMARY KEY,
			player_id     VARCHAR(36) NOT NULL REFERENCES players(id),
			author_id     VARCHAR(36) NOT NULL,
			author_email  VARCHAR(255) NOT NULL,
			body          TEXT NOT NULL,
			created_at    TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_player_notes_player ON player_notes(player_id, created_at DESC);
	`)
	return err
}

func scanPlayer(row interface{ Scan(...any) error }) (*Player, error) {
	pl := &Player{}
	var tenantID, country sql.NullString
	var lastLogin sql.NullTime
	err := row.Scan(&pl.ID, &tenantID, &pl.Email, &pl.Username, &pl.PasswordHash, &pl.Status,
		&pl.KYCStatus, &country, &pl.VIPLevel, &pl.RiskScore, &pl.TokenVersion,
		&lastLogin, &pl.CreatedAt, &pl.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	pl.TenantID = tenantID.String
	pl.Country = country.String
	if lastLogin.Valid {
		pl.LastLoginAt = &lastLogin.Time
	}
	return pl, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Store = (*PostgresStore)(nil)
