package listing

import (
	"errors"
	"net/http"
	"strconv"

	"staybook/internal/domain"
	"staybook/internal/middleware"
	"staybook/internal/pkg/request"
	"staybook/internal/pkg/response"
	"staybook/internal/pkg/validator"
	"staybook/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	v1.GET("/listings", h.List)
	v1.GET("/listings/:id", h.Get)
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	listings := protected.Group("/listings")
	{
		listings.POST("", middleware.RequireRole(string(domain.RoleHost)), h.Create)
		listings.PUT("/:id", h.Update)
		listings.PATCH("/:id", h.Update)
		listings.DELETE("/:id", h.Delete)
	}
}

// List handles GET /api/v1/listings with filters
// @Summary		Search listings
// @Tags		Listings
// @Param		city			query	string	false	"City, case insensitive"
// @Param		country			query	string	false	"Country, case insensitive"
// @Param		property_type	query	string	false	"apartment, house, hotel, villa, cottage, hostel or resort"
// @Param		min_price		query	number	false	"Minimum price per night"
// @Param		max_price		query	number	false	"Maximum price per night"
// @Param		guests			query	int		false	"Listings that fit at least this many guests"
// @Param		available		query	bool	false	"Only available (true) or unavailable (false) listings"
// @Param		search			query	string	false	"Text in title or description"
// @Param		limit			query	int		false	"Page size (default 20, max 100)"
// @Param		offset			query	int		false	"Offset"
// @Success		200	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}
// @Router		/listings [GET]
func (h *Handler) List(c *gin.Context) {
	f, errs := parseFilter(c)
	if errs != nil {
		response.Validation(c, errs)
		return
	}

	items, total, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		handleError(c, err)
		return
	}

	response.List(c, http.StatusOK, toResponses(items), response.Page{Total: total, Limit: f.Limit, Offset: f.Offset})
}

// Get handles GET /api/v1/listings/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := request.PathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid listing ID")
		return
	}

	l, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponse(l))
}

// Create handles POST /api/v1/listings (hosts only)
// @Summary		Create listing
// @Tags		Listings
// @Security	BearerAuth
// @Param		request	body	CreateListingRequest	true	"Listing data"
// @Success		201	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}	"Validation error"
// @Failure		403	{object}	map[string]interface{}	"Caller is not a host"
// @Router		/listings [POST]
func (h *Handler) Create(c *gin.Context) {
	var req CreateListingRequest
	if !request.BindJSON(c, &req) {
		return
	}

	l, err := h.service.Create(c.Request.Context(), request.UserID(c), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, ToResponse(l))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := request.PathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid listing ID")
		return
	}

	var req UpdateListingRequest
	if !request.BindJSON(c, &req) {
		return
	}

	l, err := h.service.Update(c.Request.Context(), request.UserID(c), id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponse(l))
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := request.PathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid listing ID")
		return
	}

	if err := h.service.Delete(c.Request.Context(), request.UserID(c), id); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseFilter(c *gin.Context) (repository.ListingFilter, validator.FieldErrors) {
	f := repository.ListingFilter{
		City:    c.Query("city"),
		Country: c.Query("country"),
		Search:  c.Query("search"),
	}
	f.Limit, f.Offset = request.Pagination(c)
	errs := validator.FieldErrors{}

	if v := c.Query("property_type"); v != "" {
		pt := domain.PropertyType(v)
		if !pt.Valid() {
			errs.Add("property_type", "\""+v+"\" is not a valid choice.")
		}
		f.PropertyType = pt
	}
	if v := c.Query("min_price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			errs.Add("min_price", "A valid number is required.")
		}
		f.MinPrice = &d
	}
	if v := c.Query("max_price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			errs.Add("max_price", "A valid number is required.")
		}
		f.MaxPrice = &d
	}
	if v := c.Query("guests"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs.Add("guests", "Ensure this value is greater than or equal to 1.")
		}
		f.Guests = n
	}
	if v := c.Query("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs.Add("available", "Must be a valid boolean.")
		}
		f.Available = &b
	}

	if len(errs) > 0 {
		return f, errs
	}
	return f, nil
}

func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Listing not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You don't own this listing")
	default:
		_ = c.Error(err)
		response.Internal(c)
	}
}
