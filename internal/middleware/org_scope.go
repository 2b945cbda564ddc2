package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/sellerdesk/backend/internal/apperr"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/orgscope"
	"github.com/sellerdesk/backend/pkg/response"
)

// ContextOrgID is the gin key holding the resolved org id, for logging only.
const ContextOrgID = "org_id"

// MembershipLookup finds the active membership of a user.
type MembershipLookup interface {
	ActiveMembership(ctx context.Context, userID int64) (*models.Membership, error)
}

// OrgScope resolves the active organization for the authenticated user and stores the
// Org Scope Context on the request. The org never comes from request input.
func OrgScope(memberships MembershipLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			response.Error(c, &apperr.AuthenticationError{Reason: "no identity"})
			c.Abort()
			return
		}
		m, err := memberships.ActiveMembership(c.Request.Context(), id.UserID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		s := orgscope.Scope{UserID: id.UserID, OrgID: m.OrgID, Role: m.Role}
		if !s.Valid() {
			response.Error(c, apperr.ErrNoMembership)
			c.Abort()
			return
		}
		c.Set(ContextOrgID, s.OrgID)
		c.Request = c.Request.WithContext(orgscope.WithScope(c.Request.Context(), s))
		c.Next()
	}
}

// Scope returns the Org Scope Context for the request. Handlers pass it down explicitly.
// A request that did not pass OrgScope yields the zero Scope, which every scoped call rejects.
func Scope(c *gin.Context) orgscope.Scope {
	s, _ := orgscope.FromContext(c.Request.Context())
	return s
}
