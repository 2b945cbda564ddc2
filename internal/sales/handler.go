package sales

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sellerdesk/backend/internal/exports"
	"github.com/sellerdesk/backend/internal/middleware"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/rbac"
	"github.com/sellerdesk/backend/pkg/response"
	"github.com/sellerdesk/backend/pkg/utils"
)

// Handler handles sales HTTP endpoints.
type Handler struct {
	repo     *Repository
	exporter *exports.Exporter
}

// NewHandler creates a sales handler.
func NewHandler(repo *Repository, exporter *exports.Exporter) *Handler {
	return &Handler{repo: repo, exporter: exporter}
}

// RecordSaleRequest is the body for POST /sales.
type RecordSaleRequest struct {
	SKU         string    `json:"sku" binding:"required"`
	Quantity    int       `json:"quantity" binding:"required,gt=0"`
	AmountCents int64     `json:"amount_cents" binding:"gte=0"`
	SoldAt      time.Time `json:"sold_at"`
}

// List handles GET /sales?since=RFC3339.
func (h *Handler) List(c *gin.Context) {
	s := middleware.Scope(c)
	var since time.Time
	if v := c.Query("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(c, "since must be RFC3339")
			return
		}
		since = t
	}
	limit, offset := utils.Page(c)
	events, err := h.repo.List(c.Request.Context(), s.OrgID, since, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, events)
}

// Record handles POST /sales. Manager and above.
func (h *Handler) Record(c *gin.Context) {
	s, err := rbac.Allow(middleware.Scope(c), rbac.OpWriteRecords)
	if err != nil {
		response.Error(c, err)
		return
	}
	var body RecordSaleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "sku and positive quantity required")
		return
	}
	e, err := h.repo.Record(c.Request.Context(), s.OrgID, &models.SalesEvent{
		SKU:         strings.TrimSpace(body.SKU),
		Quantity:    body.Quantity,
		AmountCents: body.AmountCents,
		SoldAt:      body.SoldAt,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, e)
}

// Summary handles GET /sales/summary. Viewers read the last computed value; computing it
// is a manager job.
func (h *Handler) Summary(c *gin.Context) {
	s := middleware.Scope(c)
	sum, err := h.repo.Summary(c.Request.Context(), s.OrgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sum)
}

// Export handles GET /sales/export?limit=N. Manager and above.
func (h *Handler) Export(c *gin.Context) {
	s, err := rbac.Allow(middleware.Scope(c), rbac.OpExport)
	if err != nil {
		response.Error(c, err)
		return
	}
	limit, err := h.exporter.Limit(c, s.OrgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	table, err := h.repo.ExportRows(c.Request.Context(), s.OrgID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.exporter.Deliver(c, s.OrgID, "sales", table)
}
