package audit

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/pagination"
)

// Handler provides HTTP endpoints for the audit log.
type Handler struct {
	recorder *Recorder
}

// NewHandler creates a new audit handler.
func NewHandler(recorder *Recorder) *Handler {
	return &Handler{recorder: recorder}
}

// RegisterRoutes sets up audit routes on an admin group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/audit/events", h.ListEvents)
	r.GET("/audit/export", h.Export)
}

func filterFromQuery(c *gin.Context) (Filter, error) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	f := Filter{
		ActorID:      c.Query("actor_id"),
		Action:       c.Query("action"),
		ResourceType: c.Query("resource_type"),
		ResourceID:   c.Query("resource_id"),
		Limit:        pagination.ClampLimit(limit),
	}
	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		return f, apierr.New(apierr.CodeValidation, "Invalid cursor.")
	}
	if cursor != nil {
		f.After = &cursor.CreatedAt
		f.AfterID = cursor.ID
	}
	return f, nil
}

// ListEvents handles GET /audit/events.
func (h *Handler) ListEvents(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		apierr.Abort(c, err)
		return
	}

	// Fetch one extra row to compute has_more.
	limit := f.Limit
	f.Limit = limit + 1
	events, err := h.recorder.List(c.Request.Context(), f)
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to list audit events", err))
		return
	}

	events, next, hasMore := pagination.ComputePage(events, limit, func(e *Event) (time.Time, string) {
		return e.CreatedAt, e.ID
	})

	c.JSON(http.StatusOK, gin.H{
		"events":      events,
		"next_cursor": next,
		"has_more":    hasMore,
	})
}

// Export handles GET /audit/export, streaming the filtered log as CSV.
func (h *Handler) Export(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		apierr.Abort(c, err)
		return
	}
	f.Limit = pagination.MaxLimit * 10 // export is bounded but generous

	events, err := h.recorder.List(c.Request.Context(), f)
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to export audit events", err))
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="audit-events.csv"`)

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"id", "created_at", "actor_email", "action", "resource_type", "resource_id", "reason", "request_id"})
	for _, e := range events {
		_ = w.Write([]string{
			e.ID,
			e.CreatedAt.UTC().Format(time.RFC3339),
			e.ActorEmail,
			e.Action,
			e.ResourceType,
			e.ResourceID,
			e.Reason,
			e.RequestID,
		})
	}
	w.Flush()
}
