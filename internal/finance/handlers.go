package finance

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/audit"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/auth"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/pagination"
)

// Handler provides the admin finance endpoints.
type Handler struct {
	svc          *Service
	recorder     *audit.Recorder
	webhookToken string
}

// NewHandler creates a finance handler.
func NewHandler(svc *Service, recorder *audit.Recorder) *Handler {
	return &Handler{svc: svc, recorder: recorder}
}

// WithWebhookToken requires the given shared token on provider
// webhook deliveries (X-Provider-Token header).
func (h *Handler) WithWebhookToken(token string) *Handler {
	h.webhookToken = token
	return h
}

// RegisterRoutes sets up finance routes on the admin group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/finance/withdrawals", auth.RequireCapability(auth.CapFinanceReview), h.ListWithdrawals)
	r.GET("/finance/withdrawals/:id", auth.RequireCapability(auth.CapFinanceReview), h.GetWithdrawal)
	r.POST("/finance/withdrawals/:id/review", auth.RequireCapability(auth.CapFinanceReview), h.Review)
	r.POST("/finance/withdrawals/:id/payout", auth.RequireCapability(auth.CapFinancePayout), h.Payout)
	r.POST("/finance/withdrawals/:id/mark-paid", auth.RequireCapability(auth.CapFinancePayout), h.MarkPaid)
}

// RegisterWebhookRoutes sets up the provider callback route. This is
// not behind admin auth; the provider authenticates with a shared
// token instead.
func (h *Handler) RegisterWebhookRoutes(r *gin.RouterGroup) {
	r.POST("/finance/withdrawals/payout/webhook", h.Webhook)
}

// ListWithdrawals handles GET /finance/withdrawals.
func (h *Handler) ListWithdrawals(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	limit = pagination.ClampLimit(limit)

	f := Filter{
		State:    State(c.Query("state")),
		PlayerID: c.Query("player_id"),
		TenantID: c.Query("tenant_id"),
		Limit:    limit + 1,
	}
	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "Invalid cursor."))
		return
	}
	if cursor != nil {
		f.Before = &cursor.CreatedAt
	}

	list, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to list withdrawals", err))
		return
	}

	list, next, hasMore := pagination.ComputePage(list, limit, func(w *Withdrawal) (time.Time, string) {
		return w.CreatedAt, w.ID
	})

	c.JSON(http.StatusOK, gin.H{
		"withdrawals": list,
		"next_cursor": next,
		"has_more":    hasMore,
	})
}

// GetWithdrawal handles GET /finance/withdrawals/:id.
func (h *Handler) GetWithdrawal(c *gin.Context) {
	w, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Withdrawal not found."))
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawal": w})
}

// ReviewRequest is the approve/reject payload.
type ReviewRequest struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason"`
}

// Review handles POST /finance/withdrawals/:id/review (reason-gated).
func (h *Handler) Review(c *gin.Context) {
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "action is required (approve or reject)"))
		return
	}
	if req.Action != "approve" && req.Action != "reject" {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "action must be approve or reject"))
		return
	}
	reason, err := audit.Reason(c, req.Reason)
	if err != nil {
		apierr.Abort(c, err)
		return
	}

	admin, _ := auth.AdminFromContext(c)
	before, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Withdrawal not found."))
		return
	}

	w, err := h.svc.Review(c.Request.Context(), c.Param("id"), req.Action, reason, admin.ID)
	if err != nil {
		abortFinanceErr(c, err)
		return
	}

	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "withdrawal.review." + req.Action, ResourceType: "withdrawal", ResourceID: w.ID,
		Before: before, After: w, Reason: reason,
	})

	c.JSON(http.StatusOK, gin.H{"withdrawal": w})
}

// Payout handles POST /finance/withdrawals/:id/payout.
func (h *Handler) Payout(c *gin.Context) {
	res, err := h.svc.Payout(c.Request.Context(), c.Param("id"), c.GetHeader("Idempotency-Key"))
	if err != nil {
		abortFinanceErr(c, err)
		return
	}

	if !res.Replayed {
		admin, _ := auth.AdminFromContext(c)
		_ = h.recorder.Record(c.Request.Context(), audit.Entry{
			ActorID: admin.ID, ActorEmail: admin.Email,
			Action: "withdrawal.payout", ResourceType: "withdrawal", ResourceID: res.Withdrawal.ID,
			After: res.Withdrawal,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"withdrawal": res.Withdrawal,
		"replayed":   res.Replayed,
	})
}

// MarkPaid handles POST /finance/withdrawals/:id/mark-paid.
func (h *Handler) MarkPaid(c *gin.Context) {
	res, err := h.svc.MarkPaid(c.Request.Context(), c.Param("id"), c.GetHeader("Idempotency-Key"))
	if err != nil {
		abortFinanceErr(c, err)
		return
	}

	if !res.Replayed {
		admin, _ := auth.AdminFromContext(c)
		_ = h.recorder.Record(c.Request.Context(), audit.Entry{
			ActorID: admin.ID, ActorEmail: admin.Email,
			Action: "withdrawal.mark_paid", ResourceType: "withdrawal", ResourceID: res.Withdrawal.ID,
			After: res.Withdrawal,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"withdrawal": res.Withdrawal,
		"replayed":   res.Replayed,
	})
}

// Webhook handles POST /finance/withdrawals/payout/webhook.
func (h *Handler) Webhook(c *gin.Context) {
	if h.webhookToken != "" && c.GetHeader("X-Provider-Token") != h.webhookToken {
		apierr.Abort(c, apierr.New(apierr.CodeAuthInvalid, "Invalid provider token."))
		return
	}

	var d WebhookDelivery
	if err := c.ShouldBindJSON(&d); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "provider_event_id, tx_id and status are required"))
		return
	}

	res, err := h.svc.HandleWebhook(c.Request.Context(), d)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Withdrawal not found."))
			return
		}
		apierr.Abort(c, apierr.From(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"applied": res.Applied,
		"replay":  res.Replay,
	})
}

func abortFinanceErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Withdrawal not found."))
	case errors.Is(err, ErrStateMismatch):
		apierr.Abort(c, apierr.Wrap(apierr.CodeStateMismatch, "Withdrawal is not in a state that allows this action.", err))
	default:
		apierr.Abort(c, apierr.From(err))
	}
}
