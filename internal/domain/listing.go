package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PropertyType string

const (
	PropertyApartment PropertyType = "apartment"
	PropertyHouse     PropertyType = "house"
	PropertyHotel     PropertyType = "hotel"
	PropertyVilla     PropertyType = "villa"
	PropertyCottage   PropertyType = "cottage"
	PropertyHostel    PropertyType = "hostel"
	PropertyResort    PropertyType = "resort"
)

var PropertyTypes = []PropertyType{
	PropertyApartment,
	PropertyHouse,
	PropertyHotel,
	PropertyVilla,
	PropertyCottage,
	PropertyHostel,
	PropertyResort,
}

func (p PropertyType) Valid() bool {
	for _, t := range PropertyTypes {
		if t == p {
			return true
		}
	}
	return false
}

// Listing is a bookable accommodation unit owned by a host.
type Listing struct {
	ID            int64                       `gorm:"primaryKey" json:"id"`
	HostID        int64                       `gorm:"not null;index" json:"host_id"`
	Host          *User                       `gorm:"foreignKey:HostID;constraint:OnDelete:CASCADE" json:"-"`
	Title         string                      `gorm:"type:varchar(200);not null" json:"title"`
	Description   string                      `gorm:"type:text" json:"description"`
	Address       string                      `gorm:"type:varchar(255)" json:"address"`
	City          string                      `gorm:"type:varchar(100);not null;index:idx_listings_location" json:"city"`
	Country       string                      `gorm:"type:varchar(100);not null;index:idx_listings_location" json:"country"`
	PropertyType  PropertyType                `gorm:"type:varchar(20);not null;index" json:"property_type"`
	PricePerNight decimal.Decimal             `gorm:"type:numeric(10,2);not null;index;check:chk_listings_price,price_per_night >= 0" json:"price_per_night"`
	MaxGuests     int                         `gorm:"not null;check:chk_listings_max_guests,max_guests >= 1" json:"max_guests"`
	Bedrooms      int                         `gorm:"not null" json:"bedrooms"`
	Bathrooms     int                         `gorm:"not null" json:"bathrooms"`
	Amenities     datatypes.JSONSlice[string] `json:"amenities"`
	IsAvailable   bool                        `gorm:"not null;index" json:"is_available"`
	CreatedAt     time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

func (Listing) TableName() string { return "listings" }
