package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerdesk/backend/internal/apperr"
)

func TestError_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"authentication", &apperr.AuthenticationError{Reason: "bad signature"}, http.StatusUnauthorized, "unauthenticated"},
		{"authorization", fmt.Errorf("guard: %w", &apperr.AuthorizationError{Reason: "viewer"}), http.StatusForbidden, "forbidden"},
		{"invariant", apperr.ErrLastOwner, http.StatusUnprocessableEntity, apperr.ErrLastOwner.Error()},
		{"not found", apperr.ErrCatalogItemNotFound, http.StatusNotFound, "catalog item not found"},
		{"exists", apperr.ErrMembershipExists, http.StatusConflict, "membership already exists"},
		{"validation", &apperr.ValidationError{Field: "sku", Message: "required"}, http.StatusBadRequest, "validation error: sku - required"},
		{"scope violation", &apperr.ScopeViolation{Kind: apperr.KindMissingFilterToken, StatementPrefix: "SELECT secret"}, http.StatusInternalServerError, "internal error"},
		{"unknown", errors.New("pool closed"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			Error(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var body Body
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.msg, body.Error)
			assert.NotContains(t, w.Body.String(), "SELECT")
		})
	}
}

func TestError_Quota(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, &apperr.QuotaExceeded{OrgID: 1, LimitKey: "api", Limit: 10, RetryAfter: 300 * time.Millisecond})

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	var body Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(10), body.Limit)
}
