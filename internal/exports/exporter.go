// Package exports renders tenant report rows as CSV and delivers them inline or through
// the org-prefixed object store.
package exports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellerdesk/backend/internal/apperr"
	"github.com/sellerdesk/backend/pkg/response"
)

// ObjectStore uploads an export under the org's prefix and returns a download URL.
type ObjectStore interface {
	PutExport(ctx context.Context, orgID int64, name, contentType string, body []byte) (key, url string, err error)
}

// Limiter is the export part of the quota ledger.
type Limiter interface {
	CheckExportLimit(orgID, requestedRows, maxRows int64) error
}

// Table is a rendered export.
type Table struct {
	Header []string
	Rows   [][]string
}

// Result is returned to the caller when the export was uploaded.
type Result struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Rows int    `json:"rows"`
}

// Exporter enforces the export ceiling and delivers tables.
type Exporter struct {
	limiter Limiter
	store   ObjectStore
	maxRows int64
	logger  *zap.Logger
}

// NewExporter creates an exporter. store may be nil, in which case CSV is streamed inline.
func NewExporter(limiter Limiter, store ObjectStore, maxRows int64, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{limiter: limiter, store: store, maxRows: maxRows, logger: logger}
}

// Limit parses the requested row count (?limit=N, default the ceiling), rejects it when it
// exceeds the ceiling, and returns the value the query must use as LIMIT.
func (e *Exporter) Limit(c *gin.Context, orgID int64) (int64, error) {
	requested := e.maxRows
	if v := c.Query("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return 0, &apperr.ValidationError{Field: "limit", Message: "must be a positive integer"}
		}
		requested = n
	}
	if err := e.limiter.CheckExportLimit(orgID, requested, e.maxRows); err != nil {
		return 0, err
	}
	return min(requested, e.maxRows), nil
}

// Deliver writes t as CSV. With an object store the file is uploaded to
// orgs/{org_id}/exports/ and a pre-signed URL is returned instead.
func (e *Exporter) Deliver(c *gin.Context, orgID int64, report string, t Table) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		response.Error(c, err)
		return
	}
	if err := w.WriteAll(t.Rows); err != nil {
		response.Error(c, err)
		return
	}

	name := fmt.Sprintf("%s-%s-%s.csv", report, time.Now().UTC().Format("20060102T150405"), uuid.NewString())
	if e.store == nil {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
		return
	}
	key, url, err := e.store.PutExport(c.Request.Context(), orgID, name, "text/csv", buf.Bytes())
	if err != nil {
		e.logger.Error("export upload failed", zap.Int64("org_id", orgID), zap.String("report", report), zap.Error(err))
		response.Error(c, err)
		return
	}
	response.OK(c, Result{Key: key, URL: url, Rows: len(t.Rows)})
}
