package response

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sellerdesk/backend/internal/apperr"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Limit   int64       `json:"limit,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// Accepted sends a 202 JSON response with data.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err})
}

// Conflict sends 409.
func Conflict(c *gin.Context, err string) {
	c.JSON(http.StatusConflict, Body{Success: false, Error: err})
}

// Unprocessable sends 422.
func Unprocessable(c *gin.Context, err string) {
	c.JSON(http.StatusUnprocessableEntity, Body{Success: false, Error: err})
}

// TooManyRequests sends 429 with the limit that was hit and a Retry-After hint.
func TooManyRequests(c *gin.Context, q *apperr.QuotaExceeded) {
	retry := int(math.Ceil(q.RetryAfter.Seconds()))
	if retry < 1 {
		retry = 1
	}
	c.Header("Retry-After", strconv.Itoa(retry))
	c.JSON(http.StatusTooManyRequests, Body{Success: false, Error: "quota exceeded: " + q.LimitKey, Limit: q.Limit})
}

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, err string) {
	c.JSON(http.StatusServiceUnavailable, Body{Success: false, Error: err})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err})
}

// Error maps err onto the response taxonomy and records it on the context for logging.
// Details of authentication failures, scope violations and unknown errors never reach
// the caller.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)
	var (
		authn     *apperr.AuthenticationError
		authz     *apperr.AuthorizationError
		quota     *apperr.QuotaExceeded
		invariant *apperr.StructuralInvariantViolation
		notFound  *apperr.NotFoundError
		exists    *apperr.AlreadyExistsError
		invalid   *apperr.ValidationError
	)
	switch {
	case errors.As(err, &authn):
		Unauthorized(c, "unauthenticated")
	case errors.As(err, &authz):
		Forbidden(c, "forbidden")
	case errors.As(err, &quota):
		TooManyRequests(c, quota)
	case errors.As(err, &invariant):
		Unprocessable(c, invariant.Error())
	case errors.As(err, &notFound):
		NotFound(c, notFound.Error())
	case errors.As(err, &exists):
		Conflict(c, exists.Error())
	case errors.As(err, &invalid):
		BadRequest(c, invalid.Error())
	default:
		Internal(c, "internal error")
	}
}
