package middleware

import (
	"context"
	"net/http"

	"staybook/internal/domain"
	"staybook/internal/pkg/response"
	"staybook/internal/repository"

	"github.com/gin-gonic/gin"
)

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// CurrentRole replaces the role claim with the role stored for the user, so
// a role change or a deleted account takes effect before the token expires.
// It must run after JWTAuth.
func CurrentRole(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := users.GetByID(c.Request.Context(), c.GetInt64(CtxUserID))
		if err != nil {
			if repository.IsNotFound(err) {
				response.Abort(c, http.StatusUnauthorized, "USER_NOT_FOUND", "The account for this token no longer exists")
				return
			}
			_ = c.Error(err)
			response.Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
			return
		}

		c.Set(CtxRole, string(u.Role))
		c.Next()
	}
}

// RequireRole ensures that the authenticated user has one of the given roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(CtxRole)
		if role == "" {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			return
		}

		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
	}
}
