package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var (
	corsMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}, ", ")
	corsHeaders = strings.Join([]string{"Content-Type", "Authorization", HeaderIdentityAssertion}, ", ")
)

// corsExposed lets browsers read the quota hint on 429 responses.
const corsExposed = "Retry-After"

// corsPolicy decides which browser origins may call the API.
type corsPolicy struct {
	any     bool
	origins map[string]bool
}

func newCORSPolicy(allowed string) corsPolicy {
	p := corsPolicy{origins: make(map[string]bool)}
	for _, o := range strings.Split(allowed, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			p.any = true
		default:
			p.origins[o] = true
		}
	}
	if len(p.origins) == 0 {
		p.any = true
	}
	return p
}

// allow returns the Access-Control-Allow-Origin value for origin, or "" when it is refused.
func (p corsPolicy) allow(origin string) string {
	switch {
	case p.any:
		return "*"
	case origin != "" && p.origins[origin]:
		return origin
	}
	return ""
}

// CORS returns a middleware that sets CORS headers for cross-origin requests.
// allowedOrigins is "*" or a comma-separated list such as "http://localhost:3000,https://app.example.com".
// Preflights from refused origins get 403.
func CORS(allowedOrigins string) gin.HandlerFunc {
	policy := newCORSPolicy(allowedOrigins)
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := policy.allow(origin)
		if !policy.any {
			c.Writer.Header().Add("Vary", "Origin")
		}
		if allowed != "" {
			c.Header("Access-Control-Allow-Origin", allowed)
			c.Header("Access-Control-Expose-Headers", corsExposed)
		}

		preflight := c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != ""
		if !preflight {
			c.Next()
			return
		}
		if allowed == "" {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Header("Access-Control-Allow-Methods", corsMethods)
		c.Header("Access-Control-Allow-Headers", corsHeaders)
		c.Header("Access-Control-Max-Age", "86400")
		c.AbortWithStatus(http.StatusNoContent)
	}
}
