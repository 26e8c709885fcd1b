package booking

import (
	"time"

	"staybook/internal/domain"

	"github.com/shopspring/decimal"
)

type CreateBookingRequest struct {
	ListingID       int64            `json:"listing_id" binding:"required,gt=0"`
	CheckIn         string           `json:"check_in" binding:"required,datetime=2006-01-02"`
	CheckOut        string           `json:"check_out" binding:"required,datetime=2006-01-02"`
	NumberOfGuests  int              `json:"number_of_guests" binding:"required,gte=1"`
	TotalPrice      *decimal.Decimal `json:"total_price" binding:"omitempty,gte=0"`
	SpecialRequests string           `json:"special_requests" binding:"max=2000"`
}

// UpdateBookingRequest backs both PUT and PATCH; nil fields are left alone.
// Guests may change the stay itself, hosts only the status.
type UpdateBookingRequest struct {
	CheckIn         *string          `json:"check_in" binding:"omitempty,datetime=2006-01-02"`
	CheckOut        *string          `json:"check_out" binding:"omitempty,datetime=2006-01-02"`
	NumberOfGuests  *int             `json:"number_of_guests" binding:"omitempty,gte=1"`
	TotalPrice      *decimal.Decimal `json:"total_price" binding:"omitempty,gte=0"`
	SpecialRequests *string          `json:"special_requests" binding:"omitempty,max=2000"`
	Status          *string          `json:"status" binding:"omitempty,oneof=pending confirmed cancelled completed"`
}

func (r UpdateBookingRequest) touchesStay() bool {
	return r.CheckIn != nil || r.CheckOut != nil || r.NumberOfGuests != nil ||
		r.TotalPrice != nil || r.SpecialRequests != nil
}

type BookingResponse struct {
	ID              int64     `json:"id"`
	ListingID       int64     `json:"listing_id"`
	GuestID         int64     `json:"guest_id"`
	CheckIn         string    `json:"check_in"`
	CheckOut        string    `json:"check_out"`
	Nights          int       `json:"nights"`
	NumberOfGuests  int       `json:"number_of_guests"`
	TotalPrice      string    `json:"total_price"`
	Status          string    `json:"status"`
	SpecialRequests string    `json:"special_requests"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func ToResponse(b *domain.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID,
		ListingID:       b.ListingID,
		GuestID:         b.GuestID,
		CheckIn:         b.CheckIn.Format(domain.DateLayout),
		CheckOut:        b.CheckOut.Format(domain.DateLayout),
		Nights:          b.Nights(),
		NumberOfGuests:  b.NumberOfGuests,
		TotalPrice:      b.TotalPrice.StringFixed(2),
		Status:          string(b.Status),
		SpecialRequests: b.SpecialRequests,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func toResponses(items []domain.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(items))
	for i := range items {
		out = append(out, ToResponse(&items[i]))
	}
	return out
}
