package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sellerdesk/backend/internal/apperr"
	"github.com/sellerdesk/backend/pkg/response"
)

// Recovery converts panics into a generic 500. Panics carrying a ScopeViolation are logged
// with the violation detail; nothing about the statement reaches the caller.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := []zap.Field{
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
			}
			var sv *apperr.ScopeViolation
			if err, ok := rec.(error); ok && errors.As(err, &sv) {
				logger.Error("request aborted by scope violation",
					append(fields, zap.String("kind", sv.Kind), zap.String("statement_prefix", sv.StatementPrefix))...)
			} else {
				logger.Error("panic recovered", append(fields, zap.Any("panic", rec), zap.Stack("stack"))...)
			}
			if !c.Writer.Written() {
				response.Internal(c, "internal error")
			}
			c.AbortWithStatus(http.StatusInternalServerError)
		}()
		c.Next()
	}
}

// Errors logs handler errors recorded on the gin context. Expected rejections (quota,
// auth, validation) stay at debug; scope violations and unknown failures are errors.
func Errors(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		c.Next()
		for _, ge := range c.Errors {
			fields := []zap.Field{zap.String("path", c.FullPath()), zap.Error(ge.Err)}
			switch {
			case apperr.IsScopeViolation(ge.Err):
				logger.Error("handler returned scope violation", fields...)
			case expected(ge.Err):
				logger.Debug("request rejected", fields...)
			default:
				logger.Error("handler error", fields...)
			}
		}
	}
}

func expected(err error) bool {
	return apperr.IsQuotaExceeded(err) ||
		apperr.IsAuthentication(err) ||
		apperr.IsAuthorization(err) ||
		apperr.IsNotFound(err) ||
		apperr.IsAlreadyExists(err) ||
		apperr.IsValidation(err) ||
		apperr.IsStructuralInvariant(err)
}
