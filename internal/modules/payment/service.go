package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"staybook/internal/domain"
	"staybook/internal/external"
	"staybook/internal/pkg/validator"
	"staybook/internal/repository"

	"go.uber.org/zap"
)

type Config struct {
	Currency    string
	CallbackURL string
	ReturnURL   string
}

type Service struct {
	payments PaymentRepository
	bookings BookingReader
	gateway  Gateway
	metrics  Metrics
	cfg      Config
	log      *zap.Logger
	now      func() time.Time
}

func NewService(payments PaymentRepository, bookings BookingReader, gateway Gateway, metrics Metrics, cfg Config, log *zap.Logger) *Service {
	return &Service{
		payments: payments,
		bookings: bookings,
		gateway:  gateway,
		metrics:  metrics,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Initiate opens a checkout session with the gateway and records the
// payment. Nothing is stored when the gateway call fails.
func (s *Service) Initiate(ctx context.Context, actorID int64, req InitiatePaymentRequest) (*domain.Payment, error) {
	b, err := s.bookings.GetWithParties(ctx, req.BookingID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, validator.FieldErrors{
				"booking_id": fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", req.BookingID),
			}
		}
		return nil, err
	}
	if b.GuestID != actorID {
		return nil, ErrForbidden
	}
	if b.Status == domain.BookingCancelled {
		return nil, validator.FieldErrors{"booking_id": "Cancelled bookings cannot be paid."}
	}

	exists, err := s.payments.ExistsForBooking(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrExists
	}

	p := &domain.Payment{
		BookingID:     b.ID,
		Reference:     external.NewReference(),
		Amount:        b.TotalPrice,
		Currency:      s.cfg.Currency,
		PaymentMethod: domain.MethodChapa,
		Status:        domain.PaymentPending,
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		PhoneNumber:   strings.TrimSpace(req.PhoneNumber),
	}
	if req.Amount != nil {
		p.Amount = req.Amount.Round(2)
		if p.Amount.LessThan(b.TotalPrice) {
			return nil, validator.FieldErrors{
				"amount": fmt.Sprintf("Ensure this value is greater than or equal to %s.", b.TotalPrice.StringFixed(2)),
			}
		}
	}
	if req.PaymentMethod != "" {
		p.PaymentMethod = domain.PaymentMethod(req.PaymentMethod)
	}
	if g := b.Guest; g != nil {
		p.Email = firstNonEmpty(p.Email, g.Email)
		p.FirstName = firstNonEmpty(p.FirstName, g.FirstName)
		p.LastName = firstNonEmpty(p.LastName, g.LastName)
		p.PhoneNumber = firstNonEmpty(p.PhoneNumber, g.PhoneNumber)
	}
	if p.Email == "" {
		return nil, validator.FieldErrors{"email": "This field is required."}
	}

	res, err := s.gateway.Initiate(ctx, external.InitiateRequest{
		Amount:      p.Amount,
		Currency:    p.Currency,
		Email:       p.Email,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Phone:       p.PhoneNumber,
		Reference:   p.Reference,
		CallbackURL: s.cfg.CallbackURL,
		ReturnURL:   s.cfg.ReturnURL,
	})
	if err != nil {
		s.metrics.GatewayError("initiate")
		s.log.Error("payment initiation failed",
			zap.Int64("booking_id", b.ID),
			zap.String("reference", p.Reference),
			zap.Error(err),
		)
		return nil, err
	}

	p.CheckoutURL = res.CheckoutURL
	p.InitiatedAt = s.now()
	if err := s.payments.Create(ctx, p); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrExists
		}
		return nil, err
	}

	s.metrics.PaymentInitiated()
	s.log.Info("payment initiated",
		zap.Int64("payment_id", p.ID),
		zap.Int64("booking_id", b.ID),
		zap.String("reference", p.Reference),
		zap.String("amount", p.Amount.StringFixed(2)),
	)
	return p, nil
}

// Verify asks the gateway for the payment's current state and reconciles it.
func (s *Service) Verify(ctx context.Context, actorID, id int64) (*domain.Payment, error) {
	p, err := s.visible(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, p.Reference)
}

// Callback reconciles the payment named by a gateway notification.
func (s *Service) Callback(ctx context.Context, reference string) (*domain.Payment, error) {
	if _, err := s.payments.GetByReference(ctx, reference); err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.reconcile(ctx, reference)
}

func (s *Service) reconcile(ctx context.Context, reference string) (*domain.Payment, error) {
	res, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		s.metrics.GatewayError("verify")
		s.log.Error("payment verification failed", zap.String("reference", reference), zap.Error(err))
		return nil, err
	}

	p, changed, err := s.payments.Reconcile(ctx, reference, func(p *domain.Payment) bool {
		return applyVerification(p, res, s.now())
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if changed {
		s.metrics.PaymentReconciled(string(p.Status))
		s.log.Info("payment reconciled",
			zap.Int64("payment_id", p.ID),
			zap.String("reference", reference),
			zap.String("gateway_status", res.Status),
			zap.String("status", string(p.Status)),
		)
	}
	return p, nil
}

// applyVerification folds a gateway verification into p and reports whether
// anything changed. Completed and cancelled payments are left alone.
func applyVerification(p *domain.Payment, res *external.VerifyResult, now time.Time) bool {
	if p.Status.Final() {
		return false
	}

	switch res.Status {
	case external.StatusSuccess:
		if reason := settlementMismatch(p, res); reason != "" {
			if p.Status == domain.PaymentFailed && p.FailureReason == reason {
				return false
			}
			p.Status = domain.PaymentFailed
			p.FailureReason = reason
			return true
		}
		p.Status = domain.PaymentCompleted
		p.CompletedAt = &now
		p.FailureReason = ""
		if res.TransactionID != "" {
			txID := res.TransactionID
			p.TransactionID = &txID
		}
		return true
	case external.StatusFailed:
		if p.Status == domain.PaymentFailed {
			return false
		}
		p.Status = domain.PaymentFailed
		p.FailureReason = "Gateway reported the payment as failed"
		return true
	default:
		if p.Status == domain.PaymentProcessing {
			return false
		}
		p.Status = domain.PaymentProcessing
		return true
	}
}

// settlementMismatch describes how the gateway's settled amount or currency
// differs from what was requested. It is empty when they agree.
func settlementMismatch(p *domain.Payment, res *external.VerifyResult) string {
	if !res.Amount.Equal(p.Amount) || !strings.EqualFold(res.Currency, p.Currency) {
		return fmt.Sprintf("Gateway settled %s %s, expected %s %s",
			res.Amount.StringFixed(2), strings.ToUpper(res.Currency),
			p.Amount.StringFixed(2), strings.ToUpper(p.Currency))
	}
	return ""
}

func (s *Service) Banks(ctx context.Context) ([]external.Bank, error) {
	banks, err := s.gateway.Banks(ctx)
	if err != nil {
		s.metrics.GatewayError("banks")
		return nil, err
	}
	return banks, nil
}

func (s *Service) List(ctx context.Context, actorID int64, limit, offset int) ([]domain.Payment, int64, error) {
	return s.payments.ListByGuest(ctx, actorID, limit, offset)
}

func (s *Service) Get(ctx context.Context, actorID, id int64) (*domain.Payment, error) {
	return s.visible(ctx, actorID, id)
}

// Update lets the paying guest change the method or phone number of an open
// payment, or cancel it.
func (s *Service) Update(ctx context.Context, actorID, id int64, req UpdatePaymentRequest) (*domain.Payment, error) {
	p, err := s.payer(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if p.Status.Final() {
		return nil, validator.FieldErrors{"status": fmt.Sprintf("Payment is %s and can no longer change.", p.Status)}
	}

	if req.PaymentMethod != nil {
		p.PaymentMethod = domain.PaymentMethod(*req.PaymentMethod)
	}
	if req.PhoneNumber != nil {
		p.PhoneNumber = strings.TrimSpace(*req.PhoneNumber)
	}
	if req.Status != nil {
		p.Status = domain.PaymentStatus(*req.Status)
	}

	if err := s.payments.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	p, err := s.payer(ctx, actorID, id)
	if err != nil {
		return err
	}
	if p.Status == domain.PaymentCompleted {
		return validator.FieldErrors{"status": "Completed payments cannot be deleted."}
	}
	if err := s.payments.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	s.log.Info("payment deleted", zap.Int64("payment_id", id), zap.Int64("actor_id", actorID))
	return nil
}

// visible returns the payment when the actor is the paying guest or the
// host of the booked listing.
func (s *Service) visible(ctx context.Context, actorID, id int64) (*domain.Payment, error) {
	p, b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.GuestID == actorID || (b.Listing != nil && b.Listing.HostID == actorID) {
		return p, nil
	}
	return nil, ErrForbidden
}

func (s *Service) payer(ctx context.Context, actorID, id int64) (*domain.Payment, error) {
	p, b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.GuestID != actorID {
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *Service) load(ctx context.Context, id int64) (*domain.Payment, *domain.Booking, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	b, err := s.bookings.GetWithParties(ctx, p.BookingID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	return p, b, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
