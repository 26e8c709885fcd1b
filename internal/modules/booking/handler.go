package booking

import (
	"errors"
	"net/http"
	"strconv"

	"staybook/internal/domain"
	"staybook/internal/pkg/request"
	"staybook/internal/pkg/response"
	"staybook/internal/pkg/validator"
	"staybook/internal/repository"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	bookings := protected.Group("/bookings")
	{
		bookings.GET("", h.List)
		bookings.POST("", h.Create)
		bookings.GET("/:id", h.Get)
		bookings.PUT("/:id", h.Update)
		bookings.PATCH("/:id", h.Update)
		bookings.POST("/:id/cancel", h.Cancel)
		bookings.DELETE("/:id", h.Delete)
	}
}

// Create handles POST /api/v1/bookings
// @Summary		Book a listing
// @Tags		Bookings
// @Security	BearerAuth
// @Param		request	body	CreateBookingRequest	true	"Stay details"
// @Success		201	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}	"Validation error"
// @Failure		409	{object}	map[string]interface{}	"Dates overlap an existing booking"
// @Router		/bookings [POST]
func (h *Handler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if !request.BindJSON(c, &req) {
		return
	}

	b, err := h.service.Create(c.Request.Context(), request.UserID(c), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, ToResponse(b))
}

// List handles GET /api/v1/bookings
// @Summary		My bookings
// @Tags		Bookings
// @Security	BearerAuth
// @Param		as			query	string	false	"host to list bookings on your listings"
// @Param		status		query	string	false	"pending, confirmed, cancelled or completed"
// @Param		listing_id	query	int		false	"Listing ID"
// @Success		200	{object}	map[string]interface{}
// @Router		/bookings [GET]
func (h *Handler) List(c *gin.Context) {
	var f repository.BookingFilter
	f.Limit, f.Offset = request.Pagination(c)
	errs := validator.FieldErrors{}

	asHost := false
	switch c.Query("as") {
	case "", "guest":
	case "host":
		asHost = true
	default:
		errs.Add("as", "\""+c.Query("as")+"\" is not a valid choice.")
	}
	if v := c.Query("status"); v != "" {
		f.Status = domain.BookingStatus(v)
		if !f.Status.Valid() {
			errs.Add("status", "\""+v+"\" is not a valid choice.")
		}
	}
	if v := c.Query("listing_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			errs.Add("listing_id", "A valid integer is required.")
		}
		f.ListingID = id
	}
	if len(errs) > 0 {
		response.Validation(c, errs)
		return
	}

	items, total, err := h.service.List(c.Request.Context(), request.UserID(c), asHost, f)
	if err != nil {
		handleError(c, err)
		return
	}
	response.List(c, http.StatusOK, toResponses(items), response.Page{Total: total, Limit: f.Limit, Offset: f.Offset})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := request.PathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid booking ID")
		return
	}

	b, err := h.service.Get(c.Request.Context(), request.UserID(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponse(b))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := request.PathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid booking ID")
		return
	}

	var req UpdateBookingRequest
	if !request.BindJSON(c, &req) {
		return
	}

	b, err := h.service.Update(c.Request.Context(), request.UserID(c), id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponse(b))
}

// Cancel handles POST /api/v1/bookings/:id/cancel
// @Summary		Cancel booking
// @Tags		Bookings
// @Security	BearerAuth
// @Param		id	path	int	true	"Booking ID"
// @Success		200	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}	"Booking is already completed"
// @Router		/bookings/{id}/cancel [POST]
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := request.PathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid booking ID")
		return
	}

	b, err := h.service.Cancel(c.Request.Context(), request.UserID(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponse(b))
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := request.PathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid booking ID")
		return
	}

	if err := h.service.Delete(c.Request.Context(), request.UserID(c), id); err != nil {
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
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You are not a party to this booking")
	case errors.Is(err, ErrConflict):
		response.Error(c, http.StatusConflict, "BOOKING_CONFLICT", "The listing is already booked for some of these dates")
	default:
		_ = c.Error(err)
		response.Internal(c)
	}
}
