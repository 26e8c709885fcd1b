package user

import (
	"context"
	"fmt"
	"strings"

	"staybook/internal/domain"
	"staybook/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	users  UserRepository
	stats  StatsReader
	tokens TokenIssuer
	log    *zap.Logger
}

func NewService(users UserRepository, stats StatsReader, tokens TokenIssuer, log *zap.Logger) *Service {
	return &Service{users: users, stats: stats, tokens: tokens, log: log}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*domain.User, string, error) {
	username := strings.TrimSpace(req.Username)
	if err := s.ensureUnique(ctx, username, req.Email, 0); err != nil {
		return nil, "", err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}

	role := domain.RoleGuest
	if req.Role != "" {
		role = domain.UserRole(req.Role)
	}

	u := &domain.User{
		Username:     username,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
		Role:         role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, "", ErrUserExists
		}
		return nil, "", err
	}

	token, err := s.tokens.GenerateToken(u.ID, u.Username, string(u.Role))
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	s.log.Info("user registered", zap.Int64("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, token, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*domain.User, string, error) {
	u, err := s.users.GetByLogin(ctx, req.Login)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(u.ID, u.Username, string(u.Role))
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return u, token, nil
}

func (s *Service) TokenTTL() int64 {
	return int64(s.tokens.TTL().Seconds())
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, role domain.UserRole, limit, offset int) ([]domain.User, int64, error) {
	return s.users.List(ctx, role, limit, offset)
}

// Update applies the non-nil fields of req. Users may only edit themselves.
func (s *Service) Update(ctx context.Context, actorID, id int64, req UpdateUserRequest) (*domain.User, error) {
	if actorID != id {
		return nil, ErrForbidden
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	username, email := u.Username, u.Email
	if req.Username != nil {
		username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		email = *req.Email
	}
	if username != u.Username || !strings.EqualFold(email, u.Email) {
		if err := s.ensureUnique(ctx, username, email, u.ID); err != nil {
			return nil, err
		}
	}
	u.Username, u.Email = username, email

	if req.Password != nil {
		hash, err := hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	if req.FirstName != nil {
		u.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		u.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.PhoneNumber != nil {
		u.PhoneNumber = strings.TrimSpace(*req.PhoneNumber)
	}
	if req.Role != nil {
		u.Role = domain.UserRole(*req.Role)
	}

	if err := s.users.Update(ctx, u); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	return u, nil
}

// Delete removes the account together with everything it owns.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	if actorID != id {
		return ErrForbidden
	}
	if err := s.users.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	s.log.Info("user deleted", zap.Int64("user_id", id))
	return nil
}

func (s *Service) Stats(ctx context.Context, id int64) (*StatsResponse, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &StatsResponse{UserID: u.ID, Role: u.Role}
	if u.Role == domain.RoleHost {
		if out.Host, err = s.stats.HostStats(ctx, u.ID); err != nil {
			return nil, err
		}
	}
	if out.Guest, err = s.stats.GuestStats(ctx, u.ID); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) ensureUnique(ctx context.Context, username, email string, excludeID int64) error {
	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return ErrUserExists
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
