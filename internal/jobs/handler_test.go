package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/orgscope"
	"github.com/sellerdesk/backend/internal/quota"
	"github.com/sellerdesk/backend/pkg/queue"
)

type pendingCounts map[int64]int64

func (p pendingCounts) CountPending(_ context.Context, orgID int64) (int64, error) {
	return p[orgID], nil
}

type nopQueue struct{}

func (nopQueue) Enqueue(context.Context, queue.Job) error { return nil }

func recompute(h *Handler, s orgscope.Scope) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(orgscope.WithScope(c.Request.Context(), s))
	})
	r.POST("/jobs/recompute", h.Recompute)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/jobs/recompute", nil))
	return w
}

func TestRecompute_ViewerForbidden(t *testing.T) {
	ledger := quota.NewLedger(nil, pendingCounts{}, nil)
	h := NewHandler(nil, ledger, nopQueue{}, 5, nil)

	w := recompute(h, orgscope.Scope{UserID: 2, OrgID: 1, Role: models.RoleViewer})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRecompute_QueueQuota(t *testing.T) {
	ledger := quota.NewLedger(nil, pendingCounts{1: 5, 2: 0}, nil)
	h := NewHandler(nil, ledger, nopQueue{}, 5, nil)

	w := recompute(h, orgscope.Scope{UserID: 1, OrgID: 1, Role: models.RoleOwner})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"limit":5`)
}
