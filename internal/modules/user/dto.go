package user

import (
	"staybook/internal/domain"
	"staybook/internal/repository"
)

type RegisterRequest struct {
	Username    string `json:"username" binding:"required,min=3,max=150"`
	Email       string `json:"email" binding:"required,email,max=254"`
	Password    string `json:"password" binding:"required,min=8,max=128"`
	FirstName   string `json:"first_name" binding:"max=150"`
	LastName    string `json:"last_name" binding:"max=150"`
	PhoneNumber string `json:"phone_number" binding:"max=20"`
	Role        string `json:"role" binding:"omitempty,oneof=guest host"`
}

// LoginRequest accepts a username or an email in Login.
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateUserRequest backs both PUT and PATCH; nil fields are left alone.
type UpdateUserRequest struct {
	Username    *string `json:"username" binding:"omitempty,min=3,max=150"`
	Email       *string `json:"email" binding:"omitempty,email,max=254"`
	Password    *string `json:"password" binding:"omitempty,min=8,max=128"`
	FirstName   *string `json:"first_name" binding:"omitempty,max=150"`
	LastName    *string `json:"last_name" binding:"omitempty,max=150"`
	PhoneNumber *string `json:"phone_number" binding:"omitempty,max=20"`
	Role        *string `json:"role" binding:"omitempty,oneof=guest host"`
}

type AuthResponse struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expires_in"`
}

type StatsResponse struct {
	UserID int64                  `json:"user_id"`
	Role   domain.UserRole        `json:"role"`
	Host   *repository.HostStats  `json:"host,omitempty"`
	Guest  *repository.GuestStats `json:"guest"`
}
