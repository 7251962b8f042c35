package kyc

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/audit"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/auth"
)

// Handler provides the KYC endpoints.
type Handler struct {
	svc      *Service
	recorder *audit.Recorder
}

// NewHandler creates a KYC handler.
func NewHandler(svc *Service, recorder *audit.Recorder) *Handler {
	return &Handler{svc: svc, recorder: recorder}
}

// RegisterPlayerRoutes sets up the player-facing KYC routes.
func (h *Handler) RegisterPlayerRoutes(r *gin.RouterGroup) {
	r.POST("/kyc/documents", h.Submit)
	r.GET("/kyc/documents", h.MyDocuments)
}

// RegisterRoutes sets up the admin review routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/kyc/queue", auth.RequireCapability(auth.CapKYCReview), h.Queue)
	r.GET("/kyc/dashboard", auth.RequireCapability(auth.CapKYCReview), h.Dashboard)
	r.GET("/kyc/players/:id/documents", auth.RequireCapability(auth.CapKYCReview), h.PlayerDocuments)
	r.POST("/kyc/documents/:id/review", auth.RequireCapability(auth.CapKYCReview), h.Review)
}

// SubmitRequest is the player document-submission payload. The file
// itself lives in object storage; the API records the reference.
type SubmitRequest struct {
	Type     string `json:"type" binding:"required"`
	FileName string `json:"file_name" binding:"required"`
}

// Submit handles POST /player/kyc/documents.
func (h *Handler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "type and file_name are required"))
		return
	}

	pid, _ := auth.PlayerIDFromContext(c)
	d, err := h.svc.Submit(c.Request.Context(), pid, req.Type, req.FileName)
	if err != nil {
		if errors.Is(err, ErrInvalidType) {
			apierr.Abort(c, apierr.New(apierr.CodeValidation, "type must be passport, id_card, utility_bill or selfie"))
			return
		}
		apierr.Abort(c, apierr.From(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"document": d})
}

// MyDocuments handles GET /player/kyc/documents.
func (h *Handler) MyDocuments(c *gin.Context) {
	pid, _ := auth.PlayerIDFromContext(c)
	docs, err := h.svc.ListByPlayer(c.Request.Context(), pid)
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to list documents", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// Queue handles GET /kyc/queue: pending documents oldest first.
func (h *Handler) Queue(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	status := c.Query("status")
	if status == "" {
		status = StatusPending
	}

	docs, err := h.svc.Queue(c.Request.Context(), Filter{Status: status, Limit: limit})
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to load queue", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// PlayerDocuments handles GET /kyc/players/:id/documents.
func (h *Handler) PlayerDocuments(c *gin.Context) {
	docs, err := h.svc.ListByPlayer(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to list documents", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

// ReviewRequest is the approve/reject payload for a document.
type ReviewRequest struct {
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason"`
}

// Review handles POST /kyc/documents/:id/review (reason-gated).
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
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Document not found."))
		return
	}

	d, err := h.svc.Review(c.Request.Context(), c.Param("id"), req.Action, reason, admin.ID)
	if err != nil {
		if errors.Is(err, ErrStateMismatch) {
			apierr.Abort(c, apierr.Wrap(apierr.CodeStateMismatch, "Document has already been reviewed.", err))
			return
		}
		apierr.Abort(c, apierr.From(err))
		return
	}

	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "kyc.review." + req.Action, ResourceType: "kyc_document", ResourceID: d.ID,
		Before: before, After: d, Reason: reason,
	})

	c.JSON(http.StatusOK, gin.H{"document": d})
}

// Dashboard handles GET /kyc/dashboard.
func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := h.svc.Dashboard(c.Request.Context())
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to compute dashboard", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"kyc": stats})
}
