package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// StatsRepository runs read-only aggregate queries with sqlx on the same
// connection pool gorm uses.
type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

type StatusCount struct {
	Status string          `db:"status" json:"status"`
	Count  int64           `db:"cnt" json:"count"`
	Amount decimal.Decimal `db:"amount" json:"amount"`
}

type HostStats struct {
	Listings          int64         `json:"listings"`
	AvailableListings int64         `json:"available_listings"`
	Bookings          []StatusCount `json:"bookings"`
	Reviews           int64         `json:"reviews"`
	AverageRating     float64       `json:"average_rating"`
}

type GuestStats struct {
	Bookings []StatusCount `json:"bookings"`
	Reviews  int64         `json:"reviews"`
}

const (
	qHostListings = `
SELECT COUNT(*) AS total,
       COALESCE(SUM(CASE WHEN is_available THEN 1 ELSE 0 END), 0) AS available
FROM listings
WHERE host_id = ?`

	qHostBookings = `
SELECT b.status AS status, COUNT(*) AS cnt, COALESCE(SUM(b.total_price), 0) AS amount
FROM bookings b
JOIN listings l ON l.id = b.listing_id
WHERE l.host_id = ?
GROUP BY b.status
ORDER BY b.status`

	qHostReviews = `
SELECT COUNT(*) AS total, COALESCE(AVG(r.rating), 0) AS avg_rating
FROM reviews r
JOIN listings l ON l.id = r.listing_id
WHERE l.host_id = ?`

	qGuestBookings = `
SELECT status, COUNT(*) AS cnt, COALESCE(SUM(total_price), 0) AS amount
FROM bookings
WHERE guest_id = ?
GROUP BY status
ORDER BY status`

	qGuestReviews = `SELECT COUNT(*) FROM reviews WHERE user_id = ?`
)

func (r *StatsRepository) HostStats(ctx context.Context, hostID int64) (*HostStats, error) {
	var listings struct {
		Total     int64 `db:"total"`
		Available int64 `db:"available"`
	}
	if err := r.db.GetContext(ctx, &listings, r.db.Rebind(qHostListings), hostID); err != nil {
		return nil, fmt.Errorf("host listings: %w", err)
	}

	bookings := []StatusCount{}
	if err := r.db.SelectContext(ctx, &bookings, r.db.Rebind(qHostBookings), hostID); err != nil {
		return nil, fmt.Errorf("host bookings: %w", err)
	}

	var reviews struct {
		Total     int64   `db:"total"`
		AvgRating float64 `db:"avg_rating"`
	}
	if err := r.db.GetContext(ctx, &reviews, r.db.Rebind(qHostReviews), hostID); err != nil {
		return nil, fmt.Errorf("host reviews: %w", err)
	}

	return &HostStats{
		Listings:          listings.Total,
		AvailableListings: listings.Available,
		Bookings:          bookings,
		Reviews:           reviews.Total,
		AverageRating:     reviews.AvgRating,
	}, nil
}

func (r *StatsRepository) GuestStats(ctx context.Context, guestID int64) (*GuestStats, error) {
	bookings := []StatusCount{}
	if err := r.db.SelectContext(ctx, &bookings, r.db.Rebind(qGuestBookings), guestID); err != nil {
		return nil, fmt.Errorf("guest bookings: %w", err)
	}

	var reviews int64
	if err := r.db.GetContext(ctx, &reviews, r.db.Rebind(qGuestReviews), guestID); err != nil {
		return nil, fmt.Errorf("guest reviews: %w", err)
	}

	return &GuestStats{Bookings: bookings, Reviews: reviews}, nil
}
