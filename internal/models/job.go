package models

import (
	"time"

	"github.com/google/uuid"
)

// Background job statuses.
const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// Background job kinds.
const (
	JobKindRecomputeSales = "recompute_sales"
)

// BackgroundJob is a tenant-owned unit of deferred work.
type BackgroundJob struct {
	ID          uuid.UUID  `json:"id"`
	OrgID       int64      `json:"org_id"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	Attempts    int        `json:"attempts"`
	Error       string     `json:"error,omitempty"`
	RequestedBy int64      `json:"requested_by"`
	CreatedAt   time.Time  `json:"created_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}
