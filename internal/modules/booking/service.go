package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"staybook/internal/domain"
	"staybook/internal/notification"
	"staybook/internal/pkg/validator"
	"staybook/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service struct {
	bookings BookingRepository
	users    UserReader
	notifier Notifier
	metrics  Metrics
	log      *zap.Logger
}

func NewService(bookings BookingRepository, users UserReader, notifier Notifier, metrics Metrics, log *zap.Logger) *Service {
	return &Service{
		bookings: bookings,
		users:    users,
		notifier: notifier,
		metrics:  metrics,
		log:      log,
	}
}

// Create validates the stay against the locked listing, rejects overlaps and
// then queues a confirmation email. Email failures never fail the booking.
func (s *Service) Create(ctx context.Context, guestID int64, req CreateBookingRequest) (*domain.Booking, error) {
	checkIn, checkOut, err := parseStay(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, err
	}

	b := &domain.Booking{
		ListingID:       req.ListingID,
		GuestID:         guestID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		NumberOfGuests:  req.NumberOfGuests,
		Status:          domain.BookingPending,
		SpecialRequests: strings.TrimSpace(req.SpecialRequests),
	}

	var listing domain.Listing
	err = s.bookings.CreateExclusive(ctx, b, func(l *domain.Listing) error {
		if err := Validate(l, b.CheckIn, b.CheckOut, b.NumberOfGuests); err != nil {
			return err
		}
		if req.TotalPrice != nil {
			b.TotalPrice = req.TotalPrice.Round(2)
		} else {
			b.TotalPrice = l.PricePerNight.Mul(decimalNights(b)).Round(2)
		}
		listing = *l
		return nil
	})
	if err != nil {
		return nil, s.writeErr(req.ListingID, err)
	}

	s.metrics.BookingCreated()
	s.log.Info("booking created",
		zap.Int64("booking_id", b.ID),
		zap.Int64("listing_id", b.ListingID),
		zap.Int64("guest_id", guestID),
	)

	s.notify(ctx, b, &listing)
	return b, nil
}

func (s *Service) notify(ctx context.Context, b *domain.Booking, l *domain.Listing) {
	guest, err := s.users.GetByID(ctx, b.GuestID)
	if err != nil {
		s.metrics.NotificationFailed()
		s.log.Warn("booking confirmation skipped: guest lookup failed",
			zap.Int64("booking_id", b.ID), zap.Error(err))
		return
	}

	msg := notification.NewBookingConfirmation(guest.Email, b.ID, Summary(b, l))
	if err := s.notifier.Enqueue(ctx, msg); err != nil {
		s.metrics.NotificationFailed()
		s.log.Warn("booking confirmation not queued",
			zap.Int64("booking_id", b.ID), zap.Error(err))
	}
}

// Summary renders the booking details included in the confirmation email.
func Summary(b *domain.Booking, l *domain.Listing) string {
	return fmt.Sprintf("Listing: %s\nCheck-in: %s\nCheck-out: %s\nGuests: %d\nTotal Price: %s",
		l.Title,
		b.CheckIn.Format(domain.DateLayout),
		b.CheckOut.Format(domain.DateLayout),
		b.NumberOfGuests,
		b.TotalPrice.StringFixed(2),
	)
}

// Get returns the booking when the actor is its guest or the listing's host.
func (s *Service) Get(ctx context.Context, actorID, id int64) (*domain.Booking, error) {
	b, _, err := s.visible(ctx, actorID, id)
	return b, err
}

// List returns the actor's bookings as a guest, or with asHost the bookings
// made on the actor's listings.
func (s *Service) List(ctx context.Context, actorID int64, asHost bool, f repository.BookingFilter) ([]domain.Booking, int64, error) {
	if asHost {
		f.HostID = actorID
	} else {
		f.GuestID = actorID
	}
	return s.bookings.List(ctx, f)
}

// Update applies req to the booking as stored at write time, so a status
// change committed by someone else in the meantime is kept.
func (s *Service) Update(ctx context.Context, actorID, id int64, req UpdateBookingRequest) (*domain.Booking, error) {
	cur, role, err := s.visible(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if role == partyHost && req.touchesStay() {
		return nil, ErrForbidden
	}

	errs := validator.FieldErrors{}
	var checkIn, checkOut *time.Time
	if req.CheckIn != nil {
		d, err := domain.ParseDate(*req.CheckIn)
		if err != nil {
			errs.Add("check_in", "Date has wrong format. Use YYYY-MM-DD.")
		}
		checkIn = &d
	}
	if req.CheckOut != nil {
		d, err := domain.ParseDate(*req.CheckOut)
		if err != nil {
			errs.Add("check_out", "Date has wrong format. Use YYYY-MM-DD.")
		}
		checkOut = &d
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	b, err := s.bookings.UpdateExclusive(ctx, id, func(b *domain.Booking, l *domain.Listing) error {
		datesChanged := false
		if checkIn != nil {
			datesChanged = !checkIn.Equal(b.CheckIn)
			b.CheckIn = *checkIn
		}
		if checkOut != nil {
			datesChanged = datesChanged || !checkOut.Equal(b.CheckOut)
			b.CheckOut = *checkOut
		}
		if req.NumberOfGuests != nil {
			b.NumberOfGuests = *req.NumberOfGuests
		}
		if req.SpecialRequests != nil {
			b.SpecialRequests = strings.TrimSpace(*req.SpecialRequests)
		}
		if req.Status != nil {
			next := domain.BookingStatus(*req.Status)
			if !s.allowedStatus(role, b.Status, next) {
				return validator.FieldErrors{
					"status": fmt.Sprintf("Cannot change status from %s to %s.", b.Status, next),
				}
			}
			b.Status = next
		}

		if !req.touchesStay() {
			return nil
		}
		if err := ValidateChange(l, b.CheckIn, b.CheckOut, b.NumberOfGuests); err != nil {
			return err
		}
		switch {
		case req.TotalPrice != nil:
			b.TotalPrice = req.TotalPrice.Round(2)
		case datesChanged:
			b.TotalPrice = l.PricePerNight.Mul(decimalNights(b)).Round(2)
		}
		return nil
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, s.writeErr(cur.ListingID, err)
	}
	b.Listing, b.Guest = cur.Listing, cur.Guest
	return b, nil
}

// Cancel moves a pending or confirmed booking to cancelled. Cancelling an
// already cancelled booking is a no-op.
func (s *Service) Cancel(ctx context.Context, actorID, id int64) (*domain.Booking, error) {
	b, _, err := s.visible(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if b.Status == domain.BookingCancelled {
		return b, nil
	}
	if !b.Status.CanTransitionTo(domain.BookingCancelled) {
		return nil, validator.FieldErrors{
			"status": fmt.Sprintf("Cannot change status from %s to %s.", b.Status, domain.BookingCancelled),
		}
	}

	changed, err := s.bookings.TransitionStatus(ctx, id, b.Status, domain.BookingCancelled)
	if err != nil {
		return nil, err
	}
	if !changed {
		// raced with another status change; report the current state
		return s.Cancel(ctx, actorID, id)
	}

	b.Status = domain.BookingCancelled
	s.log.Info("booking cancelled", zap.Int64("booking_id", id), zap.Int64("actor_id", actorID))
	return b, nil
}

func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if _, _, err := s.visible(ctx, actorID, id); err != nil {
		return err
	}
	if err := s.bookings.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	s.log.Info("booking deleted", zap.Int64("booking_id", id), zap.Int64("actor_id", actorID))
	return nil
}

type party int

const (
	partyGuest party = iota + 1
	partyHost
)

func (s *Service) visible(ctx context.Context, actorID, id int64) (*domain.Booking, party, error) {
	b, err := s.bookings.GetWithParties(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}

	switch {
	case b.GuestID == actorID:
		return b, partyGuest, nil
	case b.Listing != nil && b.Listing.HostID == actorID:
		return b, partyHost, nil
	}
	return nil, 0, ErrForbidden
}

// Guests may only cancel; hosts drive confirmation and completion.
func (s *Service) allowedStatus(role party, from, next domain.BookingStatus) bool {
	if !from.CanTransitionTo(next) {
		return false
	}
	if from == next || next == domain.BookingCancelled {
		return true
	}
	return role == partyHost
}

func (s *Service) writeErr(listingID int64, err error) error {
	var fe validator.FieldErrors
	switch {
	case errors.As(err, &fe):
		return fe
	case errors.Is(err, repository.ErrBookingOverlap):
		s.metrics.BookingConflict()
		return ErrConflict
	case repository.IsNotFound(err):
		return validator.FieldErrors{
			"listing_id": fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", listingID),
		}
	}
	return err
}

func parseStay(in, out string) (time.Time, time.Time, error) {
	errs := validator.FieldErrors{}
	checkIn, err := domain.ParseDate(in)
	if err != nil {
		errs.Add("check_in", "Date has wrong format. Use YYYY-MM-DD.")
	}
	checkOut, err := domain.ParseDate(out)
	if err != nil {
		errs.Add("check_out", "Date has wrong format. Use YYYY-MM-DD.")
	}
	return checkIn, checkOut, errs.Err()
}

func decimalNights(b *domain.Booking) decimal.Decimal {
	return decimal.NewFromInt(int64(b.Nights()))
}
