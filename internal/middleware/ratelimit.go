package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sellerdesk/backend/internal/apperr"
	"github.com/sellerdesk/backend/pkg/response"
)

// RateChecker is the rate part of the quota ledger.
type RateChecker interface {
	CheckRate(ctx context.Context, orgID int64, limitKey string, perSecond int64) error
}

// RateLimit charges every request against the active organization's per-second quota.
// It must run after OrgScope.
func RateLimit(ledger RateChecker, limitKey string, perSecond int64, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		s := Scope(c)
		if err := ledger.CheckRate(c.Request.Context(), s.OrgID, limitKey, perSecond); err != nil {
			if apperr.IsQuotaExceeded(err) {
				logger.Debug("rate limited", zap.Int64("org_id", s.OrgID), zap.String("limit_key", limitKey))
			}
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
