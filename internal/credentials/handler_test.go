package credentials

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/orgscope"
)

func TestHandler_OwnerOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo, _ := newTestRepo(t)
	h := NewHandler(repo, nil)

	for _, tt := range []struct {
		role models.Role
		want int
	}{
		{models.RoleViewer, http.StatusForbidden},
		{models.RoleManager, http.StatusForbidden},
		{models.RoleOwner, http.StatusOK},
	} {
		t.Run(tt.role.String(), func(t *testing.T) {
			r := gin.New()
			r.Use(func(c *gin.Context) {
				s := orgscope.Scope{UserID: 1, OrgID: 5, Role: tt.role}
				c.Request = c.Request.WithContext(orgscope.WithScope(c.Request.Context(), s))
			})
			r.PUT("/credentials", h.Update)
			r.GET("/credentials", h.Get)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/credentials", strings.NewReader(`{"marketplace_api_key":"k"}`)))
			assert.Equal(t, tt.want, w.Code)

			w = httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/credentials", nil))
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Contains(t, w.Body.String(), `"marketplace_api_key":"k"`)
			}
		})
	}
}
