package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sellerdesk/backend/internal/orgscope"
	"github.com/sellerdesk/backend/pkg/response"
)

// HeaderIdentityAssertion carries the host client's signed identity assertion.
const HeaderIdentityAssertion = "X-Identity-Assertion"

// IdentityResolver authenticates a presented credential.
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (orgscope.Identity, error)
}

// Authenticate resolves the caller identity from the assertion header, falling back to an
// Authorization bearer token, and stores it on the request context.
func Authenticate(resolver IdentityResolver, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		credential := c.GetHeader(HeaderIdentityAssertion)
		if credential == "" {
			header := c.GetHeader("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				credential = parts[1]
			}
		}
		id, err := resolver.Resolve(c.Request.Context(), credential)
		if err != nil {
			logger.Debug("authentication failed", zap.String("path", c.FullPath()), zap.Error(err))
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(orgscope.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// CurrentIdentity returns the authenticated identity for the request.
func CurrentIdentity(c *gin.Context) (orgscope.Identity, bool) {
	return orgscope.IdentityFromContext(c.Request.Context())
}
