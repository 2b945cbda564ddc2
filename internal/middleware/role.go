package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/rbac"
	"github.com/sellerdesk/backend/pkg/response"
)

// RequireRole returns a middleware that allows only callers whose role in the active
// organization is at least min.
func RequireRole(min models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := rbac.RequireRole(Scope(c), min); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireOperation gates a route on the minimum role registered for op.
func RequireOperation(op rbac.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := rbac.Allow(Scope(c), op); err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
