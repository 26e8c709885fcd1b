package repository

import (
	"context"

	"staybook/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) ExistsForBooking(ctx context.Context, bookingID int64) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&domain.Payment{}).
		Where("booking_id = ?", bookingID).
		Count(&cnt).Error
	if err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// ListByGuest returns payments for bookings made by the given guest.
func (r *PaymentRepository) ListByGuest(ctx context.Context, guestID int64, limit, offset int) ([]domain.Payment, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Payment{}).
		Joins("JOIN bookings ON bookings.id = payments.booking_id").
		Where("bookings.guest_id = ?", guestID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []domain.Payment
	err := q.Select("payments.*").
		Order("payments.created_at DESC").Order("payments.id DESC").
		Limit(limit).Offset(offset).
		Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func (r *PaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error
}

func (r *PaymentRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&domain.Payment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Reconcile locks the payment row identified by reference and hands it to
// apply. When apply reports a change the row is saved, and a payment that
// reached completed moves its pending booking to confirmed in the same
// transaction, provided the amount covers the booking total. Repeated calls with the same outcome change nothing.
func (r *PaymentRepository) Reconcile(ctx context.Context, reference string, apply func(p *domain.Payment) bool) (*domain.Payment, bool, error) {
	var (
		out     domain.Payment
		changed bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("reference = ?", reference).
			First(&out).Error; err != nil {
			return err
		}

		changed = apply(&out)
		if !changed {
			return nil
		}
		if err := tx.Omit(clause.Associations).Save(&out).Error; err != nil {
			return err
		}

		if out.Status != domain.PaymentCompleted {
			return nil
		}

		var b domain.Booking
		if err := tx.Select("id", "status", "total_price").First(&b, out.BookingID).Error; err != nil {
			return err
		}
		if b.Status != domain.BookingPending || out.Amount.LessThan(b.TotalPrice) {
			return nil
		}
		return tx.Model(&domain.Booking{}).
			Where("id = ? AND status = ?", b.ID, domain.BookingPending).
			Update("status", domain.BookingConfirmed).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &out, changed, nil
}
