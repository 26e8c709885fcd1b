package domain

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

type Review struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	ListingID int64     `gorm:"not null;uniqueIndex:idx_reviews_listing_user" json:"listing_id"`
	Listing   *Listing  `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"-"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_reviews_listing_user" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	BookingID *int64    `gorm:"index" json:"booking_id"`
	Booking   *Booking  `gorm:"foreignKey:BookingID;constraint:OnDelete:SET NULL" json:"-"`
	Rating    int       `gorm:"not null;check:chk_reviews_rating,rating >= 1 AND rating <= 5" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Review) TableName() string { return "reviews" }
