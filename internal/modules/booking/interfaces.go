package booking

import (
	"context"

	"staybook/internal/domain"
	"staybook/internal/notification"
	"staybook/internal/repository"
)

type BookingRepository interface {
	CreateExclusive(ctx context.Context, b *domain.Booking, guard repository.ListingGuard) error
	UpdateExclusive(ctx context.Context, id int64, patch repository.BookingPatch) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetWithParties(ctx context.Context, id int64) (*domain.Booking, error)
	List(ctx context.Context, f repository.BookingFilter) ([]domain.Booking, int64, error)
	TransitionStatus(ctx context.Context, id int64, from, next domain.BookingStatus) (bool, error)
	Delete(ctx context.Context, id int64) error
}

type UserReader interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type Notifier interface {
	Enqueue(ctx context.Context, msg notification.BookingConfirmation) error
}

type Metrics interface {
	BookingCreated()
	BookingConflict()
	NotificationFailed()
}
