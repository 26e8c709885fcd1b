package user

import (
	"context"
	"time"

	"staybook/internal/domain"
	"staybook/internal/repository"
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string, excludeID int64) (bool, error)
	List(ctx context.Context, role domain.UserRole, limit, offset int) ([]domain.User, int64, error)
	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id int64) error
}

type StatsReader interface {
	HostStats(ctx context.Context, hostID int64) (*repository.HostStats, error)
	GuestStats(ctx context.Context, guestID int64) (*repository.GuestStats, error)
}

type TokenIssuer interface {
	GenerateToken(userID int64, username, role string) (string, error)
	TTL() time.Duration
}
