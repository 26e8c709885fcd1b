package payment

import (
	"time"

	"staybook/internal/domain"

	"github.com/shopspring/decimal"
)

// InitiatePaymentRequest starts a checkout for a booking. Amount and payer
// details default to the booking total and the guest's profile.
type InitiatePaymentRequest struct {
	BookingID     int64            `json:"booking_id" binding:"required,gt=0"`
	Amount        *decimal.Decimal `json:"amount" binding:"omitempty,gt=0"`
	PaymentMethod string           `json:"payment_method" binding:"omitempty,oneof=chapa telebirr mpesa ebirr"`
	Email         string           `json:"email" binding:"omitempty,email"`
	FirstName     string           `json:"first_name" binding:"max=100"`
	LastName      string           `json:"last_name" binding:"max=100"`
	PhoneNumber   string           `json:"phone_number" binding:"max=20"`
}

type UpdatePaymentRequest struct {
	PaymentMethod *string `json:"payment_method" binding:"omitempty,oneof=chapa telebirr mpesa ebirr"`
	PhoneNumber   *string `json:"phone_number" binding:"omitempty,max=20"`
	Status        *string `json:"status" binding:"omitempty,oneof=cancelled"`
}

type PaymentResponse struct {
	ID            int64      `json:"id"`
	BookingID     int64      `json:"booking_id"`
	TransactionID *string    `json:"transaction_id"`
	Reference     string     `json:"reference"`
	CheckoutURL   string     `json:"checkout_url"`
	Amount        string     `json:"amount"`
	Currency      string     `json:"currency"`
	PaymentMethod string     `json:"payment_method"`
	Status        string     `json:"status"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	Email         string     `json:"email"`
	PhoneNumber   string     `json:"phone_number"`
	InitiatedAt   time.Time  `json:"payment_initiated_at"`
	CompletedAt   *time.Time `json:"payment_completed_at"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func ToResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		BookingID:     p.BookingID,
		TransactionID: p.TransactionID,
		Reference:     p.Reference,
		CheckoutURL:   p.CheckoutURL,
		Amount:        p.Amount.StringFixed(2),
		Currency:      p.Currency,
		PaymentMethod: string(p.PaymentMethod),
		Status:        string(p.Status),
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Email:         p.Email,
		PhoneNumber:   p.PhoneNumber,
		InitiatedAt:   p.InitiatedAt,
		CompletedAt:   p.CompletedAt,
		FailureReason: p.FailureReason,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toResponses(items []domain.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(items))
	for i := range items {
		out = append(out, ToResponse(&items[i]))
	}
	return out
}
