package catalog

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sellerdesk/backend/internal/exports"
	"github.com/sellerdesk/backend/internal/middleware"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/rbac"
	"github.com/sellerdesk/backend/pkg/response"
	"github.com/sellerdesk/backend/pkg/utils"
)

// Handler handles catalog HTTP endpoints.
type Handler struct {
	repo     *Repository
	exporter *exports.Exporter
}

// NewHandler creates a catalog handler.
func NewHandler(repo *Repository, exporter *exports.Exporter) *Handler {
	return &Handler{repo: repo, exporter: exporter}
}

// CreateItemRequest is the body for POST /catalog. Any org id in the body is ignored.
type CreateItemRequest struct {
	SKU        string `json:"sku" binding:"required"`
	Title      string `json:"title" binding:"required"`
	PriceCents int64  `json:"price_cents" binding:"gte=0"`
	Stock      int    `json:"stock" binding:"gte=0"`
}

// List handles GET /catalog?limit=&offset=.
func (h *Handler) List(c *gin.Context) {
	s := middleware.Scope(c)
	limit, offset := utils.Page(c)
	items, err := h.repo.List(c.Request.Context(), s.OrgID, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Get handles GET /catalog/:sku.
func (h *Handler) Get(c *gin.Context) {
	s := middleware.Scope(c)
	it, err := h.repo.GetBySKU(c.Request.Context(), s.OrgID, c.Param("sku"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, it)
}

// Create handles POST /catalog. Manager and above.
func (h *Handler) Create(c *gin.Context) {
	s, err := rbac.Allow(middleware.Scope(c), rbac.OpWriteRecords)
	if err != nil {
		response.Error(c, err)
		return
	}
	var body CreateItemRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "sku and title required; price and stock must not be negative")
		return
	}
	it, err := h.repo.Create(c.Request.Context(), s.OrgID, &models.CatalogItem{
		SKU:        strings.TrimSpace(body.SKU),
		Title:      strings.TrimSpace(body.Title),
		PriceCents: body.PriceCents,
		Stock:      body.Stock,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, it)
}

// Export handles GET /catalog/export?limit=N. Manager and above.
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
	h.exporter.Deliver(c, s.OrgID, "catalog", table)
}
