// Package game manages the playable game catalogue.
package game

import (
	"context"
	"errors"
	"time"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/idgen"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/logging"
)

// Game statuses.
const (
	StatusEnabled  = "enabled"
	StatusDisabled = "disabled"
)

// ErrNotFound is returned when a game does not exist.
var ErrNotFound = errors.New("game: not found")

// Game is a catalogue entry. RTP is expressed in basis points so a
// 96.5% slot is stored as 9650.
type Game struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Provider  string    `json:"provider"`
	RTPBps    int       `json:"rtp_bps"`
	Status    string    `json:"status"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Filter narrows catalogue listings.
type Filter struct {
	Status   string
	Provider string
	Query    string
}

// Store persists the catalogue.
type Store interface {
	Get(ctx context.Context, id string) (*Game, error)
	Put(ctx context.Context, g *Game) error
	List(ctx context.Context, f Filter) ([]*Game, error)
}

// Service manages the game catalogue.
type Service struct {
	store Store
}

// NewService creates a catalogue service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create adds a game to the catalogue. New games start disabled until
// an operator enables them.
func (s *Service) Create(ctx context.Context, name, provider string, rtpBps int, tags []string) (*Game, error) {
	if name == "" || provider == "" {
		return nil, apierr.New(apierr.CodeValidation, "name and provider are required")
	}
	if rtpBps < 0 || rtpBps > 10000 {
		return nil, apierr.New(apierr.CodeValidation, "rtp_bps must be between 0 and 10000")
	}
	now := time.Now().UTC()
	g := &Game{
		ID:        idgen.WithPrefix(idgen.PrefixGame),
		Name:      name,
		Provider:  provider,
		RTPBps:    rtpBps,
		Status:    StatusDisabled,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Put(ctx, g); err != nil {
		return nil, err
	}
	logging.L(ctx).Info("game created", "game_id", g.ID, "provider", provider)
	return g, nil
}

// Get returns one game.
func (s *Service) Get(ctx context.Context, id string) (*Game, error) {
	return s.store.Get(ctx, id)
}

// List returns games matching the filter.
func (s *Service) List(ctx context.Context, f Filter) ([]*Game, error) {
	return s.store.List(ctx, f)
}

// ListEnabled returns the player-visible catalogue.
func (s *Service) ListEnabled(ctx context.Context) ([]*Game, error) {
	return s.store.List(ctx, Filter{Status: StatusEnabled})
}

// Update applies a mutation to a game.
func (s *Service) Update(ctx context.Context, id string, apply func(*Game)) (*Game, error) {
	g, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(g)
	if g.RTPBps < 0 || g.RTPBps > 10000 {
		return nil, apierr.New(apierr.CodeValidation, "rtp_bps must be between 0 and 10000")
	}
	g.UpdatedAt = time.Now().UTC()
	if err := s.store.Put(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

// SetStatus enables or disables a game.
func (s *Service) SetStatus(ctx context.Context, id, status string) (*Game, error) {
	if status != StatusEnabled && status != StatusDisabled {
		return nil, apierr.New(apierr.CodeValidation, "status must be enabled or disabled")
	}
	return s.Update(ctx, id, func(g *Game) { g.Status = status })
}
