package reviews

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sellerdesk/backend/internal/middleware"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/rbac"
	"github.com/sellerdesk/backend/pkg/response"
	"github.com/sellerdesk/backend/pkg/utils"
)

// Handler handles review HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a reviews handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// CreateReviewRequest is the body for POST /reviews.
type CreateReviewRequest struct {
	SKU    string `json:"sku" binding:"required"`
	Rating int    `json:"rating" binding:"required,min=1,max=5"`
	Body   string `json:"body"`
}

// List handles GET /reviews?sku=.
func (h *Handler) List(c *gin.Context) {
	s := middleware.Scope(c)
	limit, offset := utils.Page(c)
	list, err := h.repo.List(c.Request.Context(), s.OrgID, strings.TrimSpace(c.Query("sku")), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /reviews. Manager and above.
func (h *Handler) Create(c *gin.Context) {
	s, err := rbac.Allow(middleware.Scope(c), rbac.OpWriteRecords)
	if err != nil {
		response.Error(c, err)
		return
	}
	var body CreateReviewRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "sku and rating 1-5 required")
		return
	}
	rv, err := h.repo.Create(c.Request.Context(), s.OrgID, &models.Review{
		SKU:    strings.TrimSpace(body.SKU),
		Rating: body.Rating,
		Body:   body.Body,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rv)
}
