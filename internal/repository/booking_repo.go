package repository

import (
	"context"
	"time"

	"staybook/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

type BookingFilter struct {
	GuestID   int64
	HostID    int64
	ListingID int64
	Status    domain.BookingStatus
	Limit     int
	Offset    int
}

// ListingGuard runs against the locked listing row before a booking is
// written. Returning an error aborts the transaction.
type ListingGuard func(l *domain.Listing) error

// CreateExclusive inserts b while holding a row lock on its listing, so two
// requests for the same listing cannot both pass the overlap check.
func (r *BookingRepository) CreateExclusive(ctx context.Context, b *domain.Booking, guard ListingGuard) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockAndGuard(tx, b.ListingID, guard); err != nil {
			return err
		}
		if err := ensureNoOverlap(tx, b, 0); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(b).Error
	})
}

// BookingPatch changes the freshly locked booking b. l is its locked listing.
// Returning an error aborts the transaction.
type BookingPatch func(b *domain.Booking, l *domain.Listing) error

// UpdateExclusive is the update counterpart of CreateExclusive. The listing
// and then the booking are locked and the booking is re-read, so patch sees
// status changes committed since the caller last loaded it. The booking
// being updated is excluded from the overlap check.
func (r *BookingRepository) UpdateExclusive(ctx context.Context, id int64, patch BookingPatch) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var head domain.Booking
		if err := tx.Select("id", "listing_id").First(&head, id).Error; err != nil {
			return err
		}

		var l domain.Listing
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&l, head.ListingID).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&b, id).Error; err != nil {
			return err
		}

		if patch != nil {
			if err := patch(&b, &l); err != nil {
				return err
			}
		}
		if b.Status != domain.BookingCancelled {
			if err := ensureNoOverlap(tx, &b, b.ID); err != nil {
				return err
			}
		}
		return tx.Omit(clause.Associations).Save(&b).Error
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func lockAndGuard(tx *gorm.DB, listingID int64, guard ListingGuard) error {
	var l domain.Listing
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&l, listingID).Error; err != nil {
		return err
	}
	if guard != nil {
		return guard(&l)
	}
	return nil
}

func ensureNoOverlap(tx *gorm.DB, b *domain.Booking, excludeID int64) error {
	overlap, err := hasOverlap(tx, b.ListingID, b.CheckIn, b.CheckOut, excludeID)
	if err != nil {
		return err
	}
	if overlap {
		return ErrBookingOverlap
	}
	return nil
}

// Ranges are half-open, so a check-out on the same day as another
// check-in does not count as an overlap.
func hasOverlap(db *gorm.DB, listingID int64, checkIn, checkOut time.Time, excludeID int64) (bool, error) {
	q := db.Model(&domain.Booking{}).
		Where("listing_id = ?", listingID).
		Where("status <> ?", domain.BookingCancelled).
		Where("check_in < ? AND check_out > ?", domain.TruncateDate(checkOut), domain.TruncateDate(checkIn))
	if excludeID > 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var cnt int64
	if err := q.Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *BookingRepository) HasOverlap(ctx context.Context, listingID int64, checkIn, checkOut time.Time, excludeID int64) (bool, error) {
	return hasOverlap(r.db.WithContext(ctx), listingID, checkIn, checkOut, excludeID)
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// GetWithParties loads the booking together with its listing and guest.
func (r *BookingRepository) GetWithParties(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).
		Preload("Listing").
		Preload("Guest").
		First(&b, id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) List(ctx context.Context, f BookingFilter) ([]domain.Booking, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Booking{})

	if f.HostID > 0 {
		q = q.Joins("JOIN listings ON listings.id = bookings.listing_id").
			Where("listings.host_id = ?", f.HostID)
	}
	if f.GuestID > 0 {
		q = q.Where("bookings.guest_id = ?", f.GuestID)
	}
	if f.ListingID > 0 {
		q = q.Where("bookings.listing_id = ?", f.ListingID)
	}
	if f.Status != "" {
		q = q.Where("bookings.status = ?", f.Status)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bookings []domain.Booking
	err := q.Select("bookings.*").
		Order("bookings.created_at DESC").Order("bookings.id DESC").
		Limit(f.Limit).Offset(f.Offset).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// TransitionStatus moves the booking to next only while it is still in
// from. It reports whether a row changed.
func (r *BookingRepository) TransitionStatus(ctx context.Context, id int64, from, next domain.BookingStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CompletePast marks confirmed stays that checked out on or before the
// given day as completed.
func (r *BookingRepository) CompletePast(ctx context.Context, day time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("status = ? AND check_out <= ?", domain.BookingConfirmed, domain.TruncateDate(day)).
		Update("status", domain.BookingCompleted)
	return res.RowsAffected, res.Error
}

func (r *BookingRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&domain.Booking{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
