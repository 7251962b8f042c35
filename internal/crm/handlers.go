package crm

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/audit"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/auth"
)

// Handler provides the CRM admin endpoints.
type Handler struct {
	svc      *Service
	recorder *audit.Recorder
}

// NewHandler creates a CRM handler.
func NewHandler(svc *Service, recorder *audit.Recorder) *Handler {
	return &Handler{svc: svc, recorder: recorder}
}

// RegisterRoutes sets up CRM routes on the admin group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/crm", auth.RequireCapability(auth.CapCRMManage))
	g.GET("/campaigns", h.ListCampaigns)
	g.POST("/campaigns", h.CreateCampaign)
	g.GET("/campaigns/:id", h.GetCampaign)
	g.POST("/campaigns/:id/send", h.Send)
	g.GET("/segments", h.ListSegments)
	g.POST("/segments", h.CreateSegment)
	g.GET("/templates", h.ListTemplates)
	g.POST("/templates", h.CreateTemplate)
}

// ListCampaigns handles GET /crm/campaigns.
func (h *Handler) ListCampaigns(c *gin.Context) {
	campaigns, err := h.svc.ListCampaigns(c.Request.Context())
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to list campaigns", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}

// CampaignRequest is the new-campaign payload.
type CampaignRequest struct {
	Name       string     `json:"name" binding:"required"`
	Channel    string     `json:"channel" binding:"required"`
	SegmentID  string     `json:"segment_id" binding:"required"`
	TemplateID string     `json:"template_id" binding:"required"`
	ScheduleAt *time.Time `json:"schedule_at"`
}

// CreateCampaign handles POST /crm/campaigns.
func (h *Handler) CreateCampaign(c *gin.Context) {
	var req CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "name, channel, segment_id and template_id are required"))
		return
	}

	cp, err := h.svc.CreateCampaign(c.Request.Context(), req.Name, req.Channel, req.SegmentID, req.TemplateID, req.ScheduleAt)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidChannel):
			apierr.Abort(c, apierr.New(apierr.CodeValidation, "channel must be email, sms or push"))
		case errors.Is(err, ErrNotFound):
			apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Segment or template not found."))
		default:
			apierr.Abort(c, apierr.From(err))
		}
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "crm.campaign.create", ResourceType: "crm_campaign", ResourceID: cp.ID,
		After: cp,
	})

	c.JSON(http.StatusCreated, gin.H{"campaign": cp})
}

// GetCampaign handles GET /crm/campaigns/:id.
func (h *Handler) GetCampaign(c *gin.Context) {
	cp, err := h.svc.GetCampaign(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Campaign not found."))
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaign": cp})
}

// Send handles POST /crm/campaigns/:id/send.
func (h *Handler) Send(c *gin.Context) {
	cp, err := h.svc.Send(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			apierr.Abort(c, apierr.New(apierr.CodeNotFound, "Campaign not found."))
		case errors.Is(err, ErrStateMismatch):
			apierr.Abort(c, apierr.Wrap(apierr.CodeStateMismatch, "Campaign has already been sent.", err))
		default:
			apierr.Abort(c, apierr.From(err))
		}
		return
	}

	admin, _ := auth.AdminFromContext(c)
	_ = h.recorder.Record(c.Request.Context(), audit.Entry{
		ActorID: admin.ID, ActorEmail: admin.Email,
		Action: "crm.campaign.send", ResourceType: "crm_campaign", ResourceID: cp.ID,
		After: cp,
	})

	c.JSON(http.StatusOK, gin.H{"campaign": cp})
}

// SegmentRequest is the new-segment payload.
type SegmentRequest struct {
	Name   string        `json:"name" binding:"required"`
	Filter SegmentFilter `json:"filter"`
}

// CreateSegment handles POST /crm/segments.
func (h *Handler) CreateSegment(c *gin.Context) {
	var req SegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "name is required"))
		return
	}

	sg, err := h.svc.CreateSegment(c.Request.Context(), req.Name, req.Filter)
	if err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"segment": sg})
}

// ListSegments handles GET /crm/segments.
func (h *Handler) ListSegments(c *gin.Context) {
	segments, err := h.svc.ListSegments(c.Request.Context())
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to list segments", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"segments": segments})
}

// TemplateRequest is the new-template payload.
type TemplateRequest struct {
	Name    string `json:"name" binding:"required"`
	Channel string `json:"channel" binding:"required"`
	Subject string `json:"subject"`
	Body    string `json:"body" binding:"required"`
}

// CreateTemplate handles POST /crm/templates.
func (h *Handler) CreateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, apierr.New(apierr.CodeValidation, "name, channel and body are required"))
		return
	}

	t, err := h.svc.CreateTemplate(c.Request.Context(), req.Name, req.Channel, req.Subject, req.Body)
	if err != nil {
		if errors.Is(err, ErrInvalidChannel) {
			apierr.Abort(c, apierr.New(apierr.CodeValidation, "channel must be email, sms or push"))
			return
		}
		apierr.Abort(c, apierr.From(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"template": t})
}

// ListTemplates handles GET /crm/templates.
func (h *Handler) ListTemplates(c *gin.Context) {
	templates, err := h.svc.ListTemplates(c.Request.Context())
	if err != nil {
		apierr.Abort(c, apierr.Wrap(apierr.CodeInternal, "Failed to list templates", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}
