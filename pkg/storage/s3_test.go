package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExportKey(t *testing.T) {
	assert.Equal(t, "orgs/7/exports/abc.csv", ExportKey(7, "abc.csv"))
	assert.Equal(t, "orgs/7/exports/passwd", ExportKey(7, "../../etc/passwd"), "name cannot escape the org prefix")
	assert.Equal(t, "orgs/12/", OrgPrefix(12))
}

func TestPresignExpire(t *testing.T) {
	assert.Equal(t, "15m0s", (&S3{}).PresignExpire().String())
	assert.Equal(t, "5m0s", (&S3{cfg: S3Config{PresignExpireMinutes: 5}}).PresignExpire().String())
}
