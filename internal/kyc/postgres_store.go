package kyc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore persists KYC documents in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed KYC store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const docCols = `id, player_id, type, status, file_name, notes, reviewed_by, reviewed_at, created_at`

func (p *PostgresStore) Create(ctx context.Context, d *Document) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO kyc_documents (`+docCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, d.ID, d.PlayerID, d.Type, d.Status, d.FileName, nullable(d.Notes),
		nullable(d.ReviewedBy), d.ReviewedAt, d.CreatedAt)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Document, error) {
	return scanDoc(p.db.QueryRowContext(ctx, `SELECT `+docCols+` FROM kyc_documents WHERE id = $1`, id))
}

func (p *PostgresStore) Update(ctx context.Context, d *Document) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE kyc_documents
		SET status = $1, notes = $2, reviewed_by = $3, reviewed_at = $4
		WHERE id = $5
	`, d.Status, nullable(d.Notes), nullable(d.ReviewedBy), d.ReviewedAt, d.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) List(ctx context.Context, f Filter) ([]*Document, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + docCols + ` FROM kyc_documents WHERE 1=1`
	var args []any
	if f.PlayerID != "" {
		args = append(args, f.PlayerID)
		query += fmt.Sprintf(" AND player_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Before != nil {
		args = append(args, *f.Before)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at ASC LIMIT $%d", len(args))

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*Document
	for rows.Next() {
		d, err := scanDoc(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *PostgresStore) ListByPlayer(ctx context.Context, playerID string) ([]*Document, error) {
	return p.List(ctx, Filter{PlayerID: playerID, Limit: 100})
}

func (p *PostgresStore) CountByStatus(ctx context.Context) (map[string]int, time.Duration, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM kyc_documents GROUP BY status`)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, 0, err
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var avgSeconds sql.NullFloat64
	err = p.db.QueryRowContext(ctx, `
		SELECT AVG(EXTRACT(EPOCH FROM (reviewed_at - created_at)))
		FROM kyc_documents WHERE reviewed_at IS NOT NULL
	`).Scan(&avgSeconds)
	if err != nil {
		return nil, 0, err
	}
	return counts, time.Duration(avgSeconds.Float64 * float64(time.Second)), nil
}

// Migrate creates the KYC table if it doesn't exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kyc_documents (
			id           VARCHAR(36) PRIMARY KEY,
			player_id    VARCHAR(36) NOT NULL,
			type         VARCHAR(32) NOT NULL,
			status       VARCHAR(16) NOT NULL DEFAULT 'pending',
			file_name    VARCHAR(255) NOT NULL,
			notes        TEXT,
			reviewed_by  VARCHAR(36),
			reviewed_at  TIMESTAMPTZ,
			created_at   TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_kyc_status ON kyc_documents(status, created_at);
		CREATE INDEX IF NOT EXISTS idx_kyc_player ON kyc_documents(player_id);
	`)
	return err
}

func scanDoc(row interface{ Scan(...any) error }) (*Document, error) {
	d := &Document{}
	var notes, reviewedBy sql.NullString
	var reviewedAt sql.NullTime
	err := row.Scan(&d.ID, &d.PlayerID, &d.Type, &d.Status, &d.FileName, &notes,
		&reviewedBy, &reviewedAt, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Notes = notes.String
	d.ReviewedBy = reviewedBy.String
	if reviewedAt.Valid {
		d.ReviewedAt = &reviewedAt.Time
	}
	return d, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Store = (*PostgresStore)(nil)
