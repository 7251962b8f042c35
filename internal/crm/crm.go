// Package crm manages marketing campaigns, audience segments, and
// message templates.
package crm

import (
	"context"
	"errors"
	"time"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/idgen"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/logging"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/player"
)

// Errors
var (
	ErrNotFound       = errors.New("crm: not found")
	ErrStateMismatch  = errors.New("crm: campaign already sent")
	ErrInvalidChannel = errors.New("crm: unknown channel")
)

// Channels.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelPush  = "push"
)

// Campaign statuses.
const (
	StatusDraft     = "draft"
	StatusScheduled = "scheduled"
	StatusSent      = "sent"
)

func validChannel(ch string) bool {
	return ch == ChannelEmail || ch == ChannelSMS || ch == ChannelPush
}

// Campaign is one outbound marketing send.
type Campaign struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Channel       string     `json:"channel"`
	SegmentID     string     `json:"segment_id"`
	TemplateID    string     `json:"template_id"`
	Status        string     `json:"status"`
	ScheduleAt    *time.Time `json:"schedule_at,omitempty"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	ResolvedCount int        `json:"resolved_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// SegmentFilter selects the audience for a segment.
type SegmentFilter struct {
	Country string `json:"country,omitempty"`
	VIPMin  int    `json:"vip_min,omitempty"`
	Status  string `json:"status,omitempty"`
}

// Segment is a reusable audience definition.
type Segment struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Filter    SegmentFilter `json:"filter"`
	CreatedAt time.Time     `json:"created_at"`
}

// Template is a reusable message body.
type Template struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Channel   string    `json:"channel"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists CRM entities.
type Store interface {
	CreateCampaign(ctx context.Context, cp *Campaign) error
	GetCampaign(ctx context.Context, id string) (*Campaign, error)
	UpdateCampaign(ctx context.Context, cp *Campaign) error
	ListCampaigns(ctx context.Context) ([]*Campaign, error)

	CreateSegment(ctx context.Context, sg *Segment) error
	GetSegment(ctx context.Context, id string) (*Segment, error)
	ListSegments(ctx context.Context) ([]*Segment, error)

	CreateTemplate(ctx context.Context, t *Template) error
	GetTemplate(ctx context.Context, id string) (*Template, error)
	ListTemplates(ctx context.Context) ([]*Template, error)
}

// PlayerLister resolves segment audiences against the player base.
type PlayerLister interface {
	List(ctx context.Context, f player.Filter) ([]*player.Player, error)
}

// Service implements CRM logic.
type Service struct {
	store   Store
	players PlayerLister
}

// NewService creates a CRM service.
func NewService(store Store, players PlayerLister) *Service {
	return &Service{store: store, players: players}
}

// CreateCampaign registers a campaign. With a schedule it starts
// scheduled, otherwise draft.
func (s *Service) CreateCampaign(ctx context.Context, name, channel, segmentID, templateID string, scheduleAt *time.Time) (*Campaign, error) {
	if !validChannel(channel) {
		return nil, ErrInvalidChannel
	}
	if _, err := s.store.GetSegment(ctx, segmentID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetTemplate(ctx, templateID); err != nil {
		return nil, err
	}

	status := StatusDraft
	if scheduleAt != nil {
		status = StatusScheduled
	}
	now := time.Now().UTC()
	cp := &Campaign{
		ID:         idgen.WithPrefix(idgen.PrefixCampaign),
		Name:       name,
		Channel:    channel,
		SegmentID:  segmentID,
		TemplateID: templateID,
		Status:     status,
		ScheduleAt: scheduleAt,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateCampaign(ctx, cp); err != nil {
		return nil, err
	}
	return cp, nil
}

// GetCampaign returns one campaign.
func (s *Service) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	return s.store.GetCampaign(ctx, id)
}

// ListCampaigns returns all campaigns, newest first.
func (s *Service) ListCampaigns(ctx context.Context) ([]*Campaign, error) {
	return s.store.ListCampaigns(ctx)
}

// Send marks a campaign sent and resolves the audience size. Sending a
// sent campaign is a state mismatch.
func (s *Service) Send(ctx context.Context, id string) (*Campaign, error) {
	cp, err := s.store.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if cp.Status == StatusSent {
		return nil, ErrStateMismatch
	}

	count, err := s.resolveAudience(ctx, cp.SegmentID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cp.Status = StatusSent
	cp.SentAt = &now
	cp.ResolvedCount = count
	cp.UpdatedAt = now
	if err := s.store.UpdateCampaign(ctx, cp); err != nil {
		return nil, err
	}

	logging.L(ctx).Info("crm campaign sent", "campaign_id", cp.ID, "channel", cp.Channel, "audience", count)
	return cp, nil
}

func (s *Service) resolveAudience(ctx context.Context, segmentID string) (int, error) {
	sg, err := s.store.GetSegment(ctx, segmentID)
	if err != nil {
		return 0, err
	}
	if s.players == nil {
		return 0, nil
	}
	list, err := s.players.List(ctx, player.Filter{
		Status:  sg.Filter.Status,
		Country: sg.Filter.Country,
		VIPMin:  sg.Filter.VIPMin,
		Limit:   10000,
	})
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// CreateSegment registers a segment.
func (s *Service) CreateSegment(ctx context.Context, name string, f SegmentFilter) (*Segment, error) {
	sg := &Segment{
		ID:        idgen.New(),
		Name:      name,
		Filter:    f,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateSegment(ctx, sg); err != nil {
		return nil, err
	}
	return sg, nil
}

// ListSegments returns all segments.
func (s *Service) ListSegments(ctx context.Context) ([]*Segment, error) {
	return s.store.ListSegments(ctx)
}

// CreateTemplate registers a template.
func (s *Service) CreateTemplate(ctx context.Context, name, channel, subject, body string) (*Template, error) {
	if !validChannel(channel) {
		return nil, ErrInvalidChannel
	}
	t := &Template{
		ID:        idgen.New(),
		Name:      name,
		Channel:   channel,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateTemplate(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTemplates returns all templates.
func (s *Service) ListTemplates(ctx context.Context) ([]*Template, error) {
	return s.store.ListTemplates(ctx)
}
