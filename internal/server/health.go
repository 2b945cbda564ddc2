package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sellerdesk/backend/internal/scopedb"
	"github.com/sellerdesk/backend/pkg/response"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Healthy(ctx context.Context) bool
}

// Health serves GET /health.
type Health struct {
	exec  *scopedb.Executor
	redis Pinger
}

// NewHealth creates the health handler. redis may be nil.
func NewHealth(exec *scopedb.Executor, redis Pinger) *Health {
	return &Health{exec: exec, redis: redis}
}

// Check pings the database through the unscoped escape hatch and Redis when configured.
func (h *Health) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	var one int
	if err := h.exec.QueryRowUnscoped(ctx, "health check", `SELECT 1`).Scan(&one); err != nil {
		response.ServiceUnavailable(c, "database unavailable")
		return
	}
	if h.redis != nil && !h.redis.Healthy(ctx) {
		response.ServiceUnavailable(c, "redis unavailable")
		return
	}
	response.OK(c, gin.H{"status": "ok"})
}
