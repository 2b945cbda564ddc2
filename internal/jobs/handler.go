package jobs

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sellerdesk/backend/internal/middleware"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/rbac"
	"github.com/sellerdesk/backend/pkg/queue"
	"github.com/sellerdesk/backend/pkg/response"
)

// QueueLimiter is the job-queue part of the quota ledger.
type QueueLimiter interface {
	CheckJobQueueLimit(ctx context.Context, orgID, maxEnqueued int64) error
}

// Enqueuer pushes job envelopes to the worker queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.Job) error
}

// Handler handles background job endpoints.
type Handler struct {
	repo       *Repository
	limiter    QueueLimiter
	queue      Enqueuer
	maxPending int64
	logger     *zap.Logger
}

// NewHandler creates a jobs handler.
func NewHandler(repo *Repository, limiter QueueLimiter, q Enqueuer, maxPending int64, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, limiter: limiter, queue: q, maxPending: maxPending, logger: logger}
}

// List handles GET /jobs.
func (h *Handler) List(c *gin.Context) {
	s := middleware.Scope(c)
	list, err := h.repo.List(c.Request.Context(), s.OrgID, 50)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Recompute handles POST /jobs/recompute. Manager and above, bounded by the org's
// job-queue quota.
func (h *Handler) Recompute(c *gin.Context) {
	s, err := rbac.Allow(middleware.Scope(c), rbac.OpCompute)
	if err != nil {
		response.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := h.limiter.CheckJobQueueLimit(ctx, s.OrgID, h.maxPending); err != nil {
		response.Error(c, err)
		return
	}
	job, err := h.repo.Create(ctx, s.OrgID, models.JobKindRecomputeSales, s.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	envelope := queue.Job{ID: job.ID, OrgID: s.OrgID, Kind: job.Kind, CreatedAt: job.CreatedAt}
	if err := h.queue.Enqueue(ctx, envelope); err != nil {
		if ferr := h.repo.Finish(ctx, s.OrgID, job.ID, err); ferr != nil {
			h.logger.Error("mark unqueued job failed", zap.String("job_id", job.ID.String()), zap.Error(ferr))
		}
		response.Error(c, err)
		return
	}
	h.logger.Info("recompute job enqueued", zap.Int64("org_id", s.OrgID), zap.String("job_id", job.ID.String()))
	response.Accepted(c, job)
}
