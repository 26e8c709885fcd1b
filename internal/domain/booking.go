package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// DateLayout is the wire format of check-in and check-out dates.
const DateLayout = "2006-01-02"

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether a booking may move from s to next.
// Cancelled and completed bookings are final.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case BookingPending:
		return next == BookingConfirmed || next == BookingCancelled
	case BookingConfirmed:
		return next == BookingCompleted || next == BookingCancelled
	}
	return false
}

type Booking struct {
	ID              int64           `gorm:"primaryKey" json:"id"`
	ListingID       int64           `gorm:"not null;index" json:"listing_id"`
	Listing         *Listing        `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"-"`
	GuestID         int64           `gorm:"not null;index" json:"guest_id"`
	Guest           *User           `gorm:"foreignKey:GuestID;constraint:OnDelete:CASCADE" json:"-"`
	CheckIn         time.Time       `gorm:"type:date;not null;index" json:"check_in"`
	CheckOut        time.Time       `gorm:"type:date;not null;check:chk_bookings_dates,check_out > check_in" json:"check_out"`
	NumberOfGuests  int             `gorm:"not null;check:chk_bookings_guests,number_of_guests >= 1" json:"number_of_guests"`
	TotalPrice      decimal.Decimal `gorm:"type:numeric(10,2);not null;check:chk_bookings_total,total_price >= 0" json:"total_price"`
	Status          BookingStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	SpecialRequests string          `gorm:"type:text" json:"special_requests"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

// Nights counts whole days between check-in and check-out.
func (b *Booking) Nights() int {
	return NightsBetween(b.CheckIn, b.CheckOut)
}

func NightsBetween(checkIn, checkOut time.Time) int {
	return int(TruncateDate(checkOut).Sub(TruncateDate(checkIn)).Hours() / 24)
}

// TruncateDate drops the clock part and normalizes to UTC midnight.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
