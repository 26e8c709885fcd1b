package listing

import (
	"context"
	"strings"

	"staybook/internal/domain"
	"staybook/internal/repository"

	"go.uber.org/zap"
)

type Service struct {
	listings ListingRepository
	cache    Cache
	log      *zap.Logger
}

func NewService(listings ListingRepository, cache Cache, log *zap.Logger) *Service {
	return &Service{listings: listings, cache: cache, log: log}
}

func (s *Service) Create(ctx context.Context, hostID int64, req CreateListingRequest) (*domain.Listing, error) {
	l := &domain.Listing{
		HostID:        hostID,
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
		Address:       strings.TrimSpace(req.Address),
		City:          strings.TrimSpace(req.City),
		Country:       strings.TrimSpace(req.Country),
		PropertyType:  domain.PropertyType(req.PropertyType),
		PricePerNight: req.PricePerNight.Round(2),
		MaxGuests:     req.MaxGuests,
		Bedrooms:      req.Bedrooms,
		Bathrooms:     req.Bathrooms,
		Amenities:     normalizeAmenities(req.Amenities),
		IsAvailable:   true,
	}
	if req.IsAvailable != nil {
		l.IsAvailable = *req.IsAvailable
	}

	if err := s.listings.Create(ctx, l); err != nil {
		return nil, err
	}
	s.log.Info("listing created", zap.Int64("listing_id", l.ID), zap.Int64("host_id", hostID))
	return l, nil
}

// Get serves from the cache when possible. Cache failures only cost a
// database read.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Listing, error) {
	if l, err := s.cache.Get(ctx, id); err != nil {
		s.log.Warn("listing cache read failed", zap.Int64("listing_id", id), zap.Error(err))
	} else if l != nil {
		return l, nil
	}

	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.cache.Set(ctx, l); err != nil {
		s.log.Warn("listing cache write failed", zap.Int64("listing_id", id), zap.Error(err))
	}
	return l, nil
}

func (s *Service) List(ctx context.Context, f repository.ListingFilter) ([]domain.Listing, int64, error) {
	return s.listings.List(ctx, f)
}

func (s *Service) Update(ctx context.Context, actorID, id int64, req UpdateListingRequest) (*domain.Listing, error) {
	l, err := s.owned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		l.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		l.Description = *req.Description
	}
	if req.Address != nil {
		l.Address = strings.TrimSpace(*req.Address)
	}
	if req.City != nil {
		l.City = strings.TrimSpace(*req.City)
	}
	if req.Country != nil {
		l.Country = strings.TrimSpace(*req.Country)
	}
	if req.PropertyType != nil {
		l.PropertyType = domain.PropertyType(*req.PropertyType)
	}
	if req.PricePerNight != nil {
		l.PricePerNight = req.PricePerNight.Round(2)
	}
	if req.MaxGuests != nil {
		l.MaxGuests = *req.MaxGuests
	}
	if req.Bedrooms != nil {
		l.Bedrooms = *req.Bedrooms
	}
	if req.Bathrooms != nil {
		l.Bathrooms = *req.Bathrooms
	}
	if req.Amenities != nil {
		l.Amenities = normalizeAmenities(*req.Amenities)
	}
	if req.IsAvailable != nil {
		l.IsAvailable = *req.IsAvailable
	}

	if err := s.listings.Update(ctx, l); err != nil {
		return nil, err
	}
	s.evict(ctx, id)
	return l, nil
}

// Delete removes the listing; its bookings, payments and reviews cascade.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if _, err := s.owned(ctx, actorID, id); err != nil {
		return err
	}
	if err := s.listings.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	s.evict(ctx, id)
	s.log.Info("listing deleted", zap.Int64("listing_id", id))
	return nil
}

// owned always reads the database, never the cache.
func (s *Service) owned(ctx context.Context, actorID, id int64) (*domain.Listing, error) {
	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if l.HostID != actorID {
		return nil, ErrForbidden
	}
	return l, nil
}

func (s *Service) evict(ctx context.Context, id int64) {
	if err := s.cache.Delete(ctx, id); err != nil {
		s.log.Warn("listing cache evict failed", zap.Int64("listing_id", id), zap.Error(err))
	}
}

func normalizeAmenities(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, a := range in {
		a = strings.TrimSpace(a)
		if a == "" || seen[strings.ToLower(a)] {
			continue
		}
		seen[strings.ToLower(a)] = true
		out = append(out, a)
	}
	return out
}
