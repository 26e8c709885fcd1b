package user

import (
	"errors"
	"net/http"

	"staybook/internal/domain"
	"staybook/internal/pkg/request"
	"staybook/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// Handler manages HTTP interactions for accounts and authentication
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}

	users := v1.Group("/users")
	{
		users.GET("", h.List)
		users.POST("", h.Register)
		users.GET("/:id", h.Get)
		users.GET("/:id/stats", h.Stats)
	}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	users := protected.Group("/users")
	{
		users.GET("/me", h.GetMe)
		users.PUT("/:id", h.Update)
		users.PATCH("/:id", h.Update)
		users.DELETE("/:id", h.Delete)
	}
}

// Register creates an account and returns a token for it.
// @Summary		Register
// @Tags		Auth
// @Param		request	body	RegisterRequest	true	"username, email, password, optional names, phone and role"
// @Success		201	{object}	map[string]interface{}	"User created, JWT returned"
// @Failure		400	{object}	map[string]interface{}	"Validation error"
// @Failure		409	{object}	map[string]interface{}	"Username or email already registered"
// @Router		/auth/register [POST]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !request.BindJSON(c, &req) {
		return
	}

	u, token, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, AuthResponse{User: u, Token: token, ExpiresIn: h.service.TokenTTL()})
}

// Login exchanges credentials for a token.
// @Summary		Login
// @Tags		Auth
// @Param		request	body	LoginRequest	true	"username or email, and password"
// @Success		200	{object}	map[string]interface{}	"JWT returned"
// @Failure		401	{object}	map[string]interface{}	"Wrong credentials"
// @Router		/auth/login [POST]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !request.BindJSON(c, &req) {
		return
	}

	u, token, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, AuthResponse{User: u, Token: token, ExpiresIn: h.service.TokenTTL()})
}

func (h *Handler) List(c *gin.Context) {
	role := domain.UserRole(c.Query("role"))
	if role != "" && !role.Valid() {
		response.Validation(c, map[string]string{"role": "\"" + string(role) + "\" is not a valid choice."})
		return
	}

	limit, offset := request.Pagination(c)
	users, total, err := h.service.List(c.Request.Context(), role, limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.List(c, http.StatusOK, users, response.Page{Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := request.PathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	u, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u)
}

// GetMe returns the authenticated user.
// @Summary		Current user
// @Tags		Users
// @Security	BearerAuth
// @Success		200	{object}	map[string]interface{}
// @Failure		401	{object}	map[string]interface{}
// @Router		/users/me [GET]
func (h *Handler) GetMe(c *gin.Context) {
	u, err := h.service.Get(c.Request.Context(), request.UserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := request.PathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	var req UpdateUserRequest
	if !request.BindJSON(c, &req) {
		return
	}

	u, err := h.service.Update(c.Request.Context(), request.UserID(c), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, u)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := request.PathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	if err := h.service.Delete(c.Request.Context(), request.UserID(c), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stats returns booking and review aggregates for a user.
// @Summary		User stats
// @Tags		Users
// @Param		id	path	int	true	"User ID"
// @Success		200	{object}	map[string]interface{}
// @Failure		404	{object}	map[string]interface{}
// @Router		/users/{id}/stats [GET]
func (h *Handler) Stats(c *gin.Context) {
	id, ok := request.PathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "User not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You can only modify your own account")
	case errors.Is(err, ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Username/email or password is incorrect")
	case errors.Is(err, ErrUserExists):
		response.Error(c, http.StatusConflict, "USERNAME_OR_EMAIL_EXISTS", "A user with this username or email already exists")
	default:
		_ = c.Error(err)
		response.Internal(c)
	}
}
