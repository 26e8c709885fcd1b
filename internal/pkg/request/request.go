package request

import (
	"strconv"

	"staybook/internal/pkg/response"
	"staybook/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// PathID parses a positive int64 path parameter.
func PathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Pagination reads limit/offset query params, clamping limit to (0, MaxLimit].
func Pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.Query("limit"))
	offset, _ = strconv.Atoi(c.Query("offset"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// UserID returns the authenticated user id set by the auth middleware.
func UserID(c *gin.Context) int64 {
	return c.GetInt64("user_id")
}

// BindJSON decodes and validates the body into dst. On failure it writes a
// VALIDATION_ERROR response and returns false.
func BindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Validation(c, validator.Translate(err))
		return false
	}
	return true
}
