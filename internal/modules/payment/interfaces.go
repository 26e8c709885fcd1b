package payment

import (
	"context"

	"staybook/internal/domain"
	"staybook/internal/external"
	"staybook/internal/repository"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	GetByReference(ctx context.Context, reference string) (*domain.Payment, error)
	ExistsForBooking(ctx context.Context, bookingID int64) (bool, error)
	ListByGuest(ctx context.Context, guestID int64, limit, offset int) ([]domain.Payment, int64, error)
	Update(ctx context.Context, p *domain.Payment) error
	Delete(ctx context.Context, id int64) error
	Reconcile(ctx context.Context, reference string, apply func(p *domain.Payment) bool) (*domain.Payment, bool, error)
}

type BookingReader interface {
	GetWithParties(ctx context.Context, id int64) (*domain.Booking, error)
}

// Gateway is the payment provider. *external.ChapaClient implements it.
type Gateway interface {
	Initiate(ctx context.Context, req external.InitiateRequest) (*external.InitiateResult, error)
	Verify(ctx context.Context, reference string) (*external.VerifyResult, error)
	Banks(ctx context.Context) ([]external.Bank, error)
}

type Metrics interface {
	PaymentInitiated()
	PaymentReconciled(status string)
	GatewayError(operation string)
}

var _ PaymentRepository = (*repository.PaymentRepository)(nil)
