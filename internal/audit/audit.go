// Package audit records immutable audit events for admin actions.
//
// Every reason-gated mutation (credit, debit, suspend, KYC review,
// withdrawal review, ...) appends one event with actor, resource,
// before/after snapshots, and the operator-supplied reason. The store
// interface is append-and-read only; there is no update or delete.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/idgen"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/logging"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/metrics"
)

// ErrEventNotFound is returned for unknown event IDs.
var ErrEventNotFound = errors.New("audit: event not found")

// Event is one immutable audit log entry.
type Event struct {
	ID           string          `json:"id"`
	ActorID      string          `json:"actor_id"`
	ActorEmail   string          `json:"actor_email"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id"`
	Before       json.RawMessage `json:"before,omitempty"`
	After        json.RawMessage `json:"after,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	RequestID    string          `json:"request_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Filter narrows audit queries.
type Filter struct {
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	Limit        int
	After        *time.Time // cursor position (created_at of last seen)
	AfterID      string
}

// Store persists audit events. Append-only by construction.
type Store interface {
	Append(ctx context.Context, e *Event) error
	List(ctx context.Context, f Filter) ([]*Event, error)
}

// Emitter pushes recorded events to live dashboards.
type Emitter interface {
	AuditRecorded(e *Event)
}

// Recorder writes audit events and exposes them for the console.
type Recorder struct {
	store   Store
	emitter Emitter
}

// NewRecorder creates an audit recorder.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// WithEmitter wires a live-event emitter.
func (r *Recorder) WithEmitter(e Emitter) *Recorder {
	r.emitter = e
	return r
}

// Entry describes one action to record.
type Entry struct {
	ActorID      string
	ActorEmail   string
	Action       string
	ResourceType string
	ResourceID   string
	Before       any
	After        any
	Reason       string
}

// Record appends an audit event. Snapshot marshalling errors are
// swallowed into empty snapshots; losing a snapshot must not fail the
// underlying admin action, but a store failure is surfaced.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	event := &Event{
		ID:           idgen.WithPrefix(idgen.PrefixEvent),
		ActorID:      e.ActorID,
		ActorEmail:   e.ActorEmail,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Reason:       e.Reason,
		RequestID:    logging.RequestID(ctx),
		CreatedAt:    time.Now().UTC(),
	}
	if e.Before != nil {
		if b, err := json.Marshal(e.Before); err == nil {
			event.Before = b
		}
	}
	if e.After != nil {
		if b, err := json.Marshal(e.After); err == nil {
			event.After = b
		}
	}

	if err := r.store.Append(ctx, event); err != nil {
		logging.L(ctx).Error("audit append failed", "action", e.Action, "error", err)
		return err
	}
	metrics.AuditEventsTotal.WithLabelValues(e.Action).Inc()
	if r.emitter != nil {
		r.emitter.AuditRecorded(event)
	}
	return nil
}

// List returns audit events matching the filter.
func (r *Recorder) List(ctx context.Context, f Filter) ([]*Event, error) {
	return r.store.List(ctx, f)
}

// Reason extracts the operator reason for a mutation. The body field
// is authoritative; the X-Reason header is a fallback for clients that
// cannot alter request bodies. Whitespace-only reasons are rejected.
func Reason(c *gin.Context, bodyReason string) (string, error) {
	reason := strings.TrimSpace(bodyReason)
	if reason == "" {
		reason = strings.TrimSpace(c.GetHeader("X-Reason"))
	}
	if reason == "" {
		return "", apierr.New(apierr.CodeReasonRequired, "A reason is required for this action.")
	}
	return reason, nil
}
