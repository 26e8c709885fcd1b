package payment

import (
	"errors"
	"net/http"
	"strings"

	"staybook/internal/external"
	"staybook/internal/pkg/request"
	"staybook/internal/pkg/response"
	"staybook/internal/pkg/validator"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const returnMessage = "Payment completed. You may close this page."

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// RegisterPublicRoutes mounts the endpoints the gateway and the payer's
// browser reach without a token.
func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	v1.GET("/payments/callback", h.Callback)
	v1.POST("/payments/callback", h.Callback)
	v1.GET("/payments/return", h.Return)
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	payments := protected.Group("/payments")
	{
		payments.GET("", h.List)
		payments.POST("", h.Initiate)
		payments.GET("/banks", h.Banks)
		payments.GET("/:id", h.Get)
		payments.PATCH("/:id", h.Update)
		payments.DELETE("/:id", h.Delete)
		payments.POST("/:id/verify", h.Verify)
	}
}

// Initiate handles POST /api/v1/payments
// @Summary		Pay for a booking
// @Description	Opens a Chapa checkout session. The response carries checkout_url for the payer.
// @Tags		Payments
// @Security	BearerAuth
// @Param		request	body	InitiatePaymentRequest	true	"booking_id and optional payer details"
// @Success		201	{object}	map[string]interface{}
// @Failure		400	{object}	map[string]interface{}	"Validation error"
// @Failure		409	{object}	map[string]interface{}	"Booking already has a payment"
// @Failure		502	{object}	map[string]interface{}	"Gateway rejected or unreachable"
// @Router		/payments [POST]
func (h *Handler) Initiate(c *gin.Context) {
	var req InitiatePaymentRequest
	if !request.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Initiate(c.Request.Context(), request.UserID(c), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, ToResponse(p))
}

func (h *Handler) List(c *gin.Context) {
	limit, offset := request.Pagination(c)
	items, total, err := h.service.List(c.Request.Context(), request.UserID(c), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	response.List(c, http.StatusOK, toResponses(items), response.Page{Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := request.PathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid payment ID")
		return
	}

	p, err := h.service.Get(c.Request.Context(), request.UserID(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponse(p))
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := request.PathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid payment ID")
		return
	}

	var req UpdatePaymentRequest
	if !request.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Update(c.Request.Context(), request.UserID(c), id, req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponse(p))
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := request.PathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid payment ID")
		return
	}

	if err := h.service.Delete(c.Request.Context(), request.UserID(c), id); err != nil {
		handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Verify handles POST /api/v1/payments/:id/verify
// @Summary		Verify payment
// @Tags		Payments
// @Security	BearerAuth
// @Param		id	path	int	true	"Payment ID"
// @Success		200	{object}	map[string]interface{}
// @Failure		502	{object}	map[string]interface{}	"Gateway rejected or unreachable"
// @Router		/payments/{id}/verify [POST]
func (h *Handler) Verify(c *gin.Context) {
	id, ok := request.PathID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid payment ID")
		return
	}

	p, err := h.service.Verify(c.Request.Context(), request.UserID(c), id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ToResponse(p))
}

func (h *Handler) Banks(c *gin.Context) {
	banks, err := h.service.Banks(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, banks)
}

// Callback handles the gateway notification. Chapa sends trx_ref on GET
// redirects and tx_ref in POST bodies.
// @Summary		Gateway callback
// @Tags		Payments
// @Param		trx_ref	query	string	false	"Transaction reference"
// @Param		tx_ref	query	string	false	"Transaction reference"
// @Success		200	{object}	map[string]interface{}
// @Router		/payments/callback [GET]
func (h *Handler) Callback(c *gin.Context) {
	ref := callbackReference(c)
	if ref == "" {
		response.Validation(c, validator.FieldErrors{"tx_ref": "This field is required."})
		return
	}

	h.log.Info("payment callback received", zap.String("reference", ref), zap.String("method", c.Request.Method))

	p, err := h.service.Callback(c.Request.Context(), ref)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"reference": p.Reference,
		"status":    p.Status,
	})
}

func (h *Handler) Return(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"message": returnMessage})
}

func callbackReference(c *gin.Context) string {
	for _, key := range []string{"trx_ref", "tx_ref"} {
		if v := strings.TrimSpace(c.Query(key)); v != "" {
			return v
		}
	}
	if c.Request.Method != http.MethodPost {
		return ""
	}

	var body struct {
		TrxRef string `json:"trx_ref" form:"trx_ref"`
		TxRef  string `json:"tx_ref" form:"tx_ref"`
	}
	if err := c.ShouldBind(&body); err != nil {
		return ""
	}
	return strings.TrimSpace(firstNonEmpty(body.TrxRef, body.TxRef))
}

func handleError(c *gin.Context, err error) {
	var fe validator.FieldErrors
	switch {
	case errors.As(err, &fe):
		response.Validation(c, fe)
	case errors.Is(err, external.ErrGateway):
		response.Error(c, http.StatusBadGateway, "GATEWAY_ERROR", err.Error())
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Payment not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You are not allowed to access this payment")
	case errors.Is(err, ErrExists):
		response.Error(c, http.StatusConflict, "PAYMENT_EXISTS", "This booking already has a payment")
	default:
		_ = c.Error(err)
		response.Internal(c)
	}
}
