package review

import (
	"context"
	"fmt"
	"strings"

	"staybook/internal/domain"
	"staybook/internal/pkg/validator"
	"staybook/internal/repository"

	"go.uber.org/zap"
)

type Service struct {
	reviews  ReviewRepository
	listings ListingReader
	bookings BookingReader
	log      *zap.Logger
}

func NewService(reviews ReviewRepository, listings ListingReader, bookings BookingReader, log *zap.Logger) *Service {
	return &Service{reviews: reviews, listings: listings, bookings: bookings, log: log}
}

func (s *Service) Create(ctx context.Context, userID int64, req CreateReviewRequest) (*domain.Review, error) {
	if err := s.checkRefs(ctx, userID, req); err != nil {
		return nil, err
	}

	rv := &domain.Review{
		ListingID: req.ListingID,
		UserID:    userID,
		BookingID: req.BookingID,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	}
	if err := s.reviews.Create(ctx, rv); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrExists
		}
		return nil, err
	}

	s.log.Info("review created",
		zap.Int64("review_id", rv.ID),
		zap.Int64("listing_id", rv.ListingID),
		zap.Int("rating", rv.Rating),
	)
	return rv, nil
}

// checkRefs verifies the listing exists and that a referenced booking is the
// reviewer's own stay at that listing.
func (s *Service) checkRefs(ctx context.Context, userID int64, req CreateReviewRequest) error {
	errs := validator.FieldErrors{}

	if _, err := s.listings.GetByID(ctx, req.ListingID); err != nil {
		if !repository.IsNotFound(err) {
			return err
		}
		errs.Add("listing_id", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", req.ListingID))
	}

	if req.BookingID != nil {
		b, err := s.bookings.GetByID(ctx, *req.BookingID)
		switch {
		case repository.IsNotFound(err):
			errs.Add("booking_id", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", *req.BookingID))
		case err != nil:
			return err
		case b.GuestID != userID || b.ListingID != req.ListingID:
			errs.Add("booking_id", "Booking must be your own stay at this listing.")
		}
	}

	return errs.Err()
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Review, error) {
	rv, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rv, nil
}

func (s *Service) List(ctx context.Context, f repository.ReviewFilter) ([]domain.Review, int64, error) {
	return s.reviews.List(ctx, f)
}

func (s *Service) Update(ctx context.Context, actorID, id int64, req UpdateReviewRequest) (*domain.Review, error) {
	rv, err := s.authored(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	if req.Rating != nil {
		rv.Rating = *req.Rating
	}
	if req.Comment != nil {
		rv.Comment = strings.TrimSpace(*req.Comment)
	}
	if err := s.reviews.Update(ctx, rv); err != nil {
		return nil, err
	}
	return rv, nil
}

func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if _, err := s.authored(ctx, actorID, id); err != nil {
		return err
	}
	if err := s.reviews.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *Service) authored(ctx context.Context, actorID, id int64) (*domain.Review, error) {
	rv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rv.UserID != actorID {
		return nil, ErrForbidden
	}
	return rv, nil
}
