// Package kyc handles identity verification documents and their
// review queue.
package kyc

import (
	"context"
	"errors"
	"time"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/idgen"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/logging"
)

// Errors
var (
	ErrNotFound      = errors.New("kyc: document not found")
	ErrStateMismatch = errors.New("kyc: document already reviewed")
	ErrInvalidType   = errors.New("kyc: unknown document type")
)

// Document types.
const (
	TypePassport    = "passport"
	TypeIDCard      = "id_card"
	TypeUtilityBill = "utility_bill"
	TypeSelfie      = "selfie"
)

// Document statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Player verification statuses, mirrored onto the player record.
const (
	PlayerStatusNone     = "none"
	PlayerStatusPending  = "pending"
	PlayerStatusApproved = "approved"
	PlayerStatusRejected = "rejected"
)

func validType(t string) bool {
	switch t {
	case TypePassport, TypeIDCard, TypeUtilityBill, TypeSelfie:
		return true
	}
	return false
}

// Document is one submitted verification document.
type Document struct {
	ID         string     `json:"id"`
	PlayerID   string     `json:"player_id"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	FileName   string     `json:"file_name"`
	Notes      string     `json:"notes,omitempty"`
	ReviewedBy string     `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Filter narrows document list queries.
type Filter struct {
	PlayerID string
	Status   string
	Limit    int
	Before   *time.Time
}

// Store persists KYC documents.
type Store interface {
	Create(ctx context.Context, d *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	Update(ctx context.Context, d *Document) error
	List(ctx context.Context, f Filter) ([]*Document, error)
	ListByPlayer(ctx context.Context, playerID string) ([]*Document, error)
	// CountByStatus returns document counts per status and the average
	// review latency over reviewed documents.
	CountByStatus(ctx context.Context) (map[string]int, time.Duration, error)
}

// PlayerMarker mirrors the verification outcome onto the player record.
type PlayerMarker interface {
	SetKYCStatus(ctx context.Context, playerID, status string) error
}

// Service implements KYC submission and review logic.
type Service struct {
	store   Store
	players PlayerMarker
}

// NewService creates a KYC service.
func NewService(store Store, players PlayerMarker) *Service {
	return &Service{store: store, players: players}
}

// Submit records a new document for review.
func (s *Service) Submit(ctx context.Context, playerID, docType, fileName string) (*Document, error) {
	if !validType(docType) {
		return nil, ErrInvalidType
	}
	d := &Document{
		ID:        idgen.WithPrefix(idgen.PrefixDocument),
		PlayerID:  playerID,
		Type:      docType,
		Status:    StatusPending,
		FileName:  fileName,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, err
	}
	s.recomputePlayerStatus(ctx, playerID)
	return d, nil
}

// Get returns one document.
func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	return s.store.Get(ctx, id)
}

// Queue returns documents matching the filter, oldest pending first by
// default when no status filter is given.
func (s *Service) Queue(ctx context.Context, f Filter) ([]*Document, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	return s.store.List(ctx, f)
}

// ListByPlayer returns a player's documents.
func (s *Service) ListByPlayer(ctx context.Context, playerID string) ([]*Document, error) {
	return s.store.ListByPlayer(ctx, playerID)
}

// Review approves or rejects a pending document and recomputes the
// player's overall verification status. Reviewing a reviewed document
// is a state mismatch.
func (s *Service) Review(ctx context.Context, id, action, notes, reviewer string) (*Document, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusPending {
		return nil, ErrStateMismatch
	}

	switch action {
	case "approve":
		d.Status = StatusApproved
	case "reject":
		d.Status = StatusRejected
	default:
		return nil, errors.New("kyc: unknown review action")
	}

	now := time.Now().UTC()
	d.Notes = notes
	d.ReviewedBy = reviewer
	d.ReviewedAt = &now
	if err := s.store.Update(ctx, d); err != nil {
		return nil, err
	}

	logging.L(ctx).Info("kyc document reviewed", "document_id", d.ID, "player_id", d.PlayerID, "status", d.Status)
	s.recomputePlayerStatus(ctx, d.PlayerID)
	return d, nil
}

// DashboardStats is the KYC overview for the console.
type DashboardStats struct {
	Pending          int     `json:"pending"`
	Approved         int     `json:"approved"`
	Rejected         int     `json:"rejected"`
	AvgReviewMinutes float64 `json:"avg_review_minutes"`
}

// Dashboard returns queue counts and average review time.
func (s *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	counts, avg, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &DashboardStats{
		Pending:          counts[StatusPending],
		Approved:         counts[StatusApproved],
		Rejected:         counts[StatusRejected],
		AvgReviewMinutes: avg.Minutes(),
	}, nil
}

// recomputePlayerStatus derives the player-level status: rejected if
// any document is rejected, approved once an identity document
// (passport or ID card) and a proof of address are both approved,
// pending while anything is in the queue.
func (s *Service) recomputePlayerStatus(ctx context.Context, playerID string) {
	if s.players == nil {
		return
	}
	docs, err := s.store.ListByPlayer(ctx, playerID)
	if err != nil {
		return
	}

	var anyRejected, anyPending, identityOK, addressOK bool
	for _, d := range docs {
		switch d.Status {
		case StatusRejected:
			anyRejected = true
		case StatusPending:
			anyPending = true
		case StatusApproved:
			switch d.Type {
			case TypePassport, TypeIDCard:
				identityOK = true
			case TypeUtilityBill:
				addressOK = true
			}
		}
	}

	status := PlayerStatusNone
	switch {
	case anyRejected:
		status = PlayerStatusRejected
	case identityOK && addressOK:
		status = PlayerStatusApproved
	case anyPending || len(docs) > 0:
		status = PlayerStatusPending
	}
	if err := s.players.SetKYCStatus(ctx, playerID, status); err != nil {
		logging.L(ctx).Warn("kyc status sync failed", "player_id", playerID, "status", status, "error", err)
	}
}
