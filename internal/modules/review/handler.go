package review

import (
	"errors"
	"net/http"
	"strconv"

	"staybook/internal/pkg/request"
	"staybook/internal/pkg/response"
	"staybook/internal/pkg/validator"
	"staybook/internal/repository"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	v1.GET("/reviews", h.List)
	v1.GET("/reviews/:id", h.Get)
	v1.GET("/listings/:id/reviews", h.ListForListing)
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	reviews := protected.Group("/reviews")
	{
		reviews.POST("", h.Create)
		reviews.PUT("/:id", h.Update)
		reviews.PATCH("/:id", h.Update)
		reviews.DELETE("/:id", h.Delete)
	}
}

// Create handles POST /api/v1/reviews
// @Summary		Review a listing
// @Description	One review per user and listing. booking_id, when given, must be the reviewer's stay at the listing.
// @Tags		Reviews
// @Security	BearerAuth
// @Param		request	body	CreateReviewRequest	true	"listing_id, rating 1-5, comment"
// @Success		201	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}	"Validation error"
// @Failure		409	{object}	map[string]interface{}	"Listing already reviewed by this user"
// @Router		/reviews [POST]
func (h *Handler) Create(c *gin.Context) {
	var req CreateReviewRequest
	if !request.BindJSON(c, &req) {
		return
	}

	rv, err := h.svc.Create(c.Request.Context(), request.UserID(c), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, ToResponse(rv))
}

// List handles GET /api/v1/reviews?listing_id=
func (h *Handler) List(c *gin.Context) {
	var f repository.ReviewFilter
	if v := c.Query("listing_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			response.Validation(c, validator.FieldErrors{"listing_id": "A valid integer is required."})
			return
		}
		f.ListingID = id
	}
	h.list(c, f)
}

// ListForListing handles GET /api/v1/listings/:id/reviews
// @Summary		Listing reviews
// @Tags		Reviews
// @Param		id	path	int	true	"Listing ID"
// @Success		200	{object}	map[string]interface{}
// @Router		/listings/{id}/reviews [GET]
func (h *Handler) ListForListing(c *gin.Context) {
	id, ok := request.PathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid listing ID")
		return
	}
	h.list(c, repository.ReviewFilter{ListingID: id})
}

func (h *Handler) list(c *gin.Context, f repository.ReviewFilter) {
	f.Limit, f.Offset = request.Pagination(c)
	items, total, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		handleError(c, err)
		return
	}
	response.List(c, http.StatusOK, toResponses(items), response.Page{Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := request.PathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid review ID")
		return
	}

	rv, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponse(rv))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := request.PathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid review ID")
		return
	}

	var req UpdateReviewRequest
	if !request.BindJSON(c, &req) {
		return
	}

	rv, err := h.svc.Update(c.Request.Context(), request.UserID(c), id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponse(rv))
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := request.PathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid review ID")
		return
	}

	if err := h.svc.Delete(c.Request.Context(), request.UserID(c), id); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func handleError(c *gin.Context, err error) {
	var fe validator.FieldErrors
	switch {
	case errors.As(err, &fe):
		response.Validation(c, fe)
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Review not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Only the author can change this review")
	case errors.Is(err, ErrExists):
		response.Error(c, http.StatusConflict, "REVIEW_EXISTS", "You have already reviewed this listing")
	default:
		_ = c.Error(err)
		response.Internal(c)
	}
}
