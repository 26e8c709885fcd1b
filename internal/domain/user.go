package domain

import (
	"strings"
	"time"
)

type UserRole string

const (
	RoleGuest UserRole = "guest"
	RoleHost  UserRole = "host"
)

func (r UserRole) Valid() bool {
	return r == RoleGuest || r == RoleHost
}

type User struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"type:varchar(254);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	FirstName    string    `gorm:"type:varchar(150)" json:"first_name"`
	LastName     string    `gorm:"type:varchar(150)" json:"last_name"`
	PhoneNumber  string    `gorm:"type:varchar(20)" json:"phone_number,omitempty"`
	Role         UserRole  `gorm:"type:varchar(10);not null;index" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// FullName falls back to the username when no name parts are set.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}
