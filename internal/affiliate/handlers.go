package affiliate

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/audit"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/auth"
)

// Handler provides the affiliate endpoints.
type Handler struct {
	svc      *Service
	recorder *audit.Recorder
}

// NewHandler creates an affiliate handler.
func NewHandler(svc *Service, recorder *audit.Recorder) *Handler {
	return &Handler{svc: svc, recorder: recorder}
}

// RegisterPublicRoutes sets up the unauthenticated tracking routes
// (hit by the player frontend on referred visits and signups).
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/affiliates/track/:code/click", h.TrackClick)
	r.POST("/affiliates/track/:code/signup", h.TrackSignup)
}

// RegisterRoutes sets up affiliate routes on the admin group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/affiliates", auth.RequireCapability(auth.CapAffiliatesManage))
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.GET("/:id/links", h.ListLinks)
	g.POST("/:id/links", h.CreateLink)
	g.GET("/:id/payouts", h.ListPayouts)
	g.POST("/:id/payouts", h.CreatePayout)
	g.POST("/payouts/:payoutID/mark-paid", h.MarkPayoutPaid)
}

// TrackClick handles POST /affiliates/track/:code/click.
func (h *Handler) TrackClick(c *gin.Context) {
	if err := h.svc.RecordClick(c.Request.Context(), c.Param("code")); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Unknown tracking code."))
		return
	}
	c.Status(http.StatusNoContent)
}

// TrackSignup handles POST /affiliates/track/:code/signup.
func (h *Handler) TrackSignup(c *gin.Context) {
	if err := h.svc.RecordSignup(c.Request.Context(), c.Param("code")); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Unknown tracking code."))
		return
	}
	c.Status(http.StatusNoContent)
}

// List handles GET /affiliates.
func (h *Handler) List(c *gin.Context) {
	affiliates, err := h.svc.List(c.Request.Context())
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to list affiliates", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"affiliates": affiliates})
}

// CreateRequest is the new-affiliate payload.
type CreateRequest struct {
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email" binding:"required"`
	CommissionBps int    `json:"commission_bps"`
}

// Create handles POST /affiliates.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "name and email are required"))
		return
	}

	a, err := h.svc.Create(c.Request.Context(), req.Name, req.Email, req.CommissionBps)
	if err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "affiliate.create", ResourceType: "affiliate", ResourceID: a.ID,
		After: a,
	})

	c.JSON(http.StatusCreated, gin.H{"affiliate": a})
}

// Get handles GET /affiliates/:id.
func (h *Handler) Get(c *gin.Context) {
	a, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Affiliate not found."))
		return
	}
	c.JSON(http.StatusOK, gin.H{"affiliate": a})
}

// LinkRequest is the new-link payload. An empty code gets generated.
type LinkRequest struct {
	Code string `json:"code"`
}

// CreateLink handles POST /affiliates/:id/links.
func (h *Handler) CreateLink(c *gin.Context) {
	var req LinkRequest
	_ = c.ShouldBindJSON(&req)

	l, err := h.svc.CreateLink(c.Request.Context(), c.Param("id"), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Affiliate not found."))
		case errors.Is(err, ErrCodeTaken):
			apierr.Abort(c, apierr.New(apierr.CodeConflict, "Tracking code already in use."))
		default:
			apierr.Abort(c, apierr.From(err))
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"link": l})
}

// ListLinks handles GET /affiliates/:id/links.
func (h *Handler) ListLinks(c *gin.Context) {
	links, err := h.svc.ListLinks(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to list links", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

// PayoutRequest is the new-payout payload.
type PayoutRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required"`
	Period      string `json:"period" binding:"required"`
}

// CreatePayout handles POST /affiliates/:id/payouts.
func (h *Handler) CreatePayout(c *gin.Context) {
	var req PayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AmountCents <= 0 {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "a positive amount_cents and period are required"))
		return
	}

	p, err := h.svc.CreatePayout(c.Request.Context(), c.Param("id"), req.AmountCents, req.Period)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Affiliate not found."))
			return
		}
		apierr.Abort(c, apierr.From(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"payout": p})
}

// ListPayouts handles GET /affiliates/:id/payouts.
func (h *Handler) ListPayouts(c *gin.Context) {
	payouts, err := h.svc.ListPayouts(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to list payouts", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"payouts": payouts})
}

// MarkPayoutPaid handles POST /affiliates/payouts/:payoutID/mark-paid
// (reason-gated).
func (h *Handler) MarkPayoutPaid(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	reason, err := audit.Reason(c, req.Reason)
	if err != nil {
		apierr.Abort(c, err)
		return
	}

	p, err := h.svc.MarkPayoutPaid(c.Request.Context(), c.Param("payoutID"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Payout not found."))
		case errors.Is(err, ErrStateMismatch):
			apierr.Abort(c, apierr.Wrap(apierr.CodeStateMismatch, "Payout has already been paid.", err))
		default:
			apierr.Abort(c, apierr.From(err))
		}
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "affiliate.payout.mark_paid", ResourceType: "affiliate_payout", ResourceID: p.ID,
		After: p, Reason: reason,
	})

	c.JSON(http.StatusOK, gin.H{"payout": p})
}
