package credentials

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sellerdesk/backend/internal/middleware"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/rbac"
	"github.com/sellerdesk/backend/pkg/response"
)

// Handler handles the credential bundle endpoints. Both are owner only.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates a credentials handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// UpdateRequest is the body for PUT /credentials.
type UpdateRequest struct {
	MarketplaceAPIKey string `json:"marketplace_api_key"`
	MarketplaceSecret string `json:"marketplace_secret"`
	PaymentsToken     string `json:"payments_token"`
}

// Get handles GET /credentials.
func (h *Handler) Get(c *gin.Context) {
	s, err := rbac.Allow(middleware.Scope(c), rbac.OpCredentialsRead)
	if err != nil {
		response.Error(c, err)
		return
	}
	b, err := h.repo.Get(c.Request.Context(), s.OrgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, b)
}

// Update handles PUT /credentials.
func (h *Handler) Update(c *gin.Context) {
	s, err := rbac.Allow(middleware.Scope(c), rbac.OpCredentialsUpdate)
	if err != nil {
		response.Error(c, err)
		return
	}
	var body UpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid credential bundle")
		return
	}
	b, err := h.repo.Upsert(c.Request.Context(), s.OrgID, models.CredentialBundle{
		MarketplaceAPIKey: body.MarketplaceAPIKey,
		MarketplaceSecret: body.MarketplaceSecret,
		PaymentsToken:     body.PaymentsToken,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("credential bundle updated", zap.Int64("org_id", s.OrgID), zap.Int64("user_id", s.UserID))
	response.OK(c, b)
}
