package listing

import (
	"time"

	"staybook/internal/domain"

	"github.com/shopspring/decimal"
)

type CreateListingRequest struct {
	Title         string           `json:"title" binding:"required,max=200"`
	Description   string           `json:"description"`
	Address       string           `json:"address" binding:"max=255"`
	City          string           `json:"city" binding:"required,max=100"`
	Country       string           `json:"country" binding:"required,max=100"`
	PropertyType  string           `json:"property_type" binding:"required,oneof=apartment house hotel villa cottage hostel resort"`
	PricePerNight *decimal.Decimal `json:"price_per_night" binding:"required,gte=0"`
	MaxGuests     int              `json:"max_guests" binding:"required,gte=1"`
	Bedrooms      int              `json:"bedrooms" binding:"gte=0"`
	Bathrooms     int              `json:"bathrooms" binding:"gte=0"`
	Amenities     []string         `json:"amenities" binding:"omitempty,dive,max=100"`
	IsAvailable   *bool            `json:"is_available"`
}

// UpdateListingRequest backs both PUT and PATCH; nil fields are left alone.
type UpdateListingRequest struct {
	Title         *string          `json:"title" binding:"omitempty,min=1,max=200"`
	Description   *string          `json:"description"`
	Address       *string          `json:"address" binding:"omitempty,max=255"`
	City          *string          `json:"city" binding:"omitempty,min=1,max=100"`
	Country       *string          `json:"country" binding:"omitempty,min=1,max=100"`
	PropertyType  *string          `json:"property_type" binding:"omitempty,oneof=apartment house hotel villa cottage hostel resort"`
	PricePerNight *decimal.Decimal `json:"price_per_night" binding:"omitempty,gte=0"`
	MaxGuests     *int             `json:"max_guests" binding:"omitempty,gte=1"`
	Bedrooms      *int             `json:"bedrooms" binding:"omitempty,gte=0"`
	Bathrooms     *int             `json:"bathrooms" binding:"omitempty,gte=0"`
	Amenities     *[]string        `json:"amenities"`
	IsAvailable   *bool            `json:"is_available"`
}

type ListingResponse struct {
	ID            int64     `json:"id"`
	HostID        int64     `json:"host_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Address       string    `json:"address"`
	City          string    `json:"city"`
	Country       string    `json:"country"`
	PropertyType  string    `json:"property_type"`
	PricePerNight string    `json:"price_per_night"`
	MaxGuests     int       `json:"max_guests"`
	Bedrooms      int       `json:"bedrooms"`
	Bathrooms     int       `json:"bathrooms"`
	Amenities     []string  `json:"amenities"`
	IsAvailable   bool      `json:"is_available"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func ToResponse(l *domain.Listing) ListingResponse {
	amenities := []string(l.Amenities)
	if amenities == nil {
		amenities = []string{}
	}
	return ListingResponse{
		ID:            l.ID,
		HostID:        l.HostID,
		Title:         l.Title,
		Description:   l.Description,
		Address:       l.Address,
		City:          l.City,
		Country:       l.Country,
		PropertyType:  string(l.PropertyType),
		PricePerNight: l.PricePerNight.StringFixed(2),
		MaxGuests:     l.MaxGuests,
		Bedrooms:      l.Bedrooms,
		Bathrooms:     l.Bathrooms,
		Amenities:     amenities,
		IsAvailable:   l.IsAvailable,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

func toResponses(items []domain.Listing) []ListingResponse {
	out := make([]ListingResponse, 0, len(items))
	for i := range items {
		out = append(out, ToResponse(&items[i]))
	}
	return out
}
