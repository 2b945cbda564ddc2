package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Page reads ?limit= (1-200, default 50) and ?offset= (default 0). Bad values fall back
// to the defaults.
func Page(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
