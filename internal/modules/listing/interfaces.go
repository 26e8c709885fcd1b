package listing

import (
	"context"

	"staybook/internal/domain"
	"staybook/internal/repository"
)

type ListingRepository interface {
	Create(ctx context.Context, l *domain.Listing) error
	GetByID(ctx context.Context, id int64) (*domain.Listing, error)
	List(ctx context.Context, f repository.ListingFilter) ([]domain.Listing, int64, error)
	Update(ctx context.Context, l *domain.Listing) error
	Delete(ctx context.Context, id int64) error
}

// Cache is the read-through cache in front of GetByID.
type Cache interface {
	Get(ctx context.Context, id int64) (*domain.Listing, error)
	Set(ctx context.Context, l *domain.Listing) error
	Delete(ctx context.Context, id int64) error
}
