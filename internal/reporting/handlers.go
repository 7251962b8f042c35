package reporting

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/apierr"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/auth"
)

// Handler serves the reporting endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a reporting handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes sets up reporting routes on the admin group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/reports", auth.RequireCapability(auth.CapReportsRead))
	g.GET("/dashboard", h.Dashboard)
}

// Dashboard handles GET /reports/dashboard?period=24h|7d|30d.
func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.svc.Dashboard(c.Request.Context(), c.Query("period"))
	if err != nil {
		apierr.Abort(c, apierr.From(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"dashboard": d})
}
