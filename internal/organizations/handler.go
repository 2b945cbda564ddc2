package organizations

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sellerdesk/backend/internal/apperr"
	"github.com/sellerdesk/backend/internal/middleware"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/rbac"
	"github.com/sellerdesk/backend/pkg/response"
)

// Handler handles organization HTTP endpoints.
type Handler struct {
	repo   *Repository
	logger *zap.Logger
}

// NewHandler creates an organizations handler.
func NewHandler(repo *Repository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger}
}

// CreateOrganizationRequest is the body for POST /orgs.
type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
}

// AddMemberRequest is the body for POST /orgs/members.
type AddMemberRequest struct {
	ExternalIdentityID string       `json:"external_identity_id" binding:"required"`
	Role               *models.Role `json:"role" binding:"required"`
}

// ChangeRoleRequest is the body for PATCH /orgs/members/:userID.
type ChangeRoleRequest struct {
	Role *models.Role `json:"role" binding:"required"`
}

// CreateOrganization handles POST /orgs. The caller becomes the owner of the new org.
func (h *Handler) CreateOrganization(c *gin.Context) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Error(c, &apperr.AuthenticationError{})
		return
	}
	var body CreateOrganizationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "name required")
		return
	}
	body.Name = strings.TrimSpace(body.Name)
	if len(body.Name) < 1 || len(body.Name) > 255 {
		response.BadRequest(c, "name must be 1-255 characters")
		return
	}
	org, err := h.repo.Create(c.Request.Context(), body.Name, id.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("organization created", zap.Int64("org_id", org.ID), zap.Int64("user_id", id.UserID))
	response.Created(c, org)
}

// ListMyOrganizations handles GET /orgs.
func (h *Handler) ListMyOrganizations(c *gin.Context) {
	s := middleware.Scope(c)
	orgs, err := h.repo.ListForUser(c.Request.Context(), s.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"active_org_id": s.OrgID, "organizations": orgs})
}

// Activate handles POST /orgs/:id/activate. Membership in the target org is checked
// server side; the path id only selects among the caller's own orgs.
func (h *Handler) Activate(c *gin.Context) {
	s := middleware.Scope(c)
	orgID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || orgID <= 0 {
		response.BadRequest(c, "invalid organization id")
		return
	}
	if err := h.repo.Activate(c.Request.Context(), orgID, s.UserID); err != nil {
		if apperr.IsNotFound(err) {
			response.Error(c, apperr.ErrNoMembership)
			return
		}
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"active_org_id": orgID})
}

// ListMembers handles GET /orgs/members for the active organization.
func (h *Handler) ListMembers(c *gin.Context) {
	s := middleware.Scope(c)
	members, err := h.repo.ListMembers(c.Request.Context(), s.OrgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, members)
}

// AddMember handles POST /orgs/members. Owner only.
func (h *Handler) AddMember(c *gin.Context) {
	s, err := rbac.Allow(middleware.Scope(c), rbac.OpMemberAdd)
	if err != nil {
		response.Error(c, err)
		return
	}
	var body AddMemberRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "external_identity_id and a valid role required")
		return
	}
	m, err := h.repo.AddMember(c.Request.Context(), s.OrgID, strings.TrimSpace(body.ExternalIdentityID), *body.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("member added",
		zap.Int64("org_id", s.OrgID),
		zap.Int64("member_user_id", m.UserID),
		zap.Stringer("role", m.Role),
	)
	response.Created(c, m)
}

// ChangeRole handles PATCH /orgs/members/:userID. Owner only.
func (h *Handler) ChangeRole(c *gin.Context) {
	s, err := rbac.Allow(middleware.Scope(c), rbac.OpMemberRoleChange)
	if err != nil {
		response.Error(c, err)
		return
	}
	userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var body ChangeRoleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "a valid role required")
		return
	}
	if err := h.repo.ChangeRole(c.Request.Context(), s.OrgID, userID, *body.Role); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"user_id": userID, "role": *body.Role})
}

// RemoveMember handles DELETE /orgs/members/:userID. Owner only.
func (h *Handler) RemoveMember(c *gin.Context) {
	s, err := rbac.Allow(middleware.Scope(c), rbac.OpMemberRemove)
	if err != nil {
		response.Error(c, err)
		return
	}
	userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if err := h.repo.RemoveMember(c.Request.Context(), s.OrgID, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
