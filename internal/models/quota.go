package models

// QuotaBucket is a durable counter for one (org, limit key, time window) triple.
type QuotaBucket struct {
	OrgID      int64  `json:"org_id"`
	LimitKey   string `json:"limit_key"`
	TimeBucket int64  `json:"time_bucket"`
	Count      int64  `json:"count"`
}
