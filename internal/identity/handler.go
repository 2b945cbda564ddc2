package identity

import (
	"github.com/gin-gonic/gin"

	"github.com/sellerdesk/backend/internal/middleware"
	"github.com/sellerdesk/backend/pkg/response"
)

// Handler serves the resolved identity and active scope.
type Handler struct{}

// NewHandler creates an identity handler.
func NewHandler() *Handler {
	return &Handler{}
}

// WhoamiResponse is returned by POST /auth/resolve and GET /me.
type WhoamiResponse struct {
	UserID             int64  `json:"user_id"`
	ExternalIdentityID string `json:"external_identity_id"`
	DisplayName        string `json:"display_name"`
	OrgID              int64  `json:"org_id"`
	Role               string `json:"role"`
}

// Whoami returns the authenticated identity and the organization it resolved to.
func (h *Handler) Whoami(c *gin.Context) {
	id, _ := middleware.CurrentIdentity(c)
	s := middleware.Scope(c)
	response.OK(c, WhoamiResponse{
		UserID:             id.UserID,
		ExternalIdentityID: id.ExternalIdentityID,
		DisplayName:        id.DisplayName,
		OrgID:              s.OrgID,
		Role:               s.Role.String(),
	})
}
