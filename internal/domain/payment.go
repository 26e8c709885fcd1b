package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentProcessing, PaymentCompleted, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}

// Final statuses are never changed by gateway reconciliation.
func (s PaymentStatus) Final() bool {
	return s == PaymentCompleted || s == PaymentCancelled
}

type PaymentMethod string

const (
	MethodChapa    PaymentMethod = "chapa"
	MethodTelebirr PaymentMethod = "telebirr"
	MethodMpesa    PaymentMethod = "mpesa"
	MethodEbirr    PaymentMethod = "ebirr"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodChapa, MethodTelebirr, MethodMpesa, MethodEbirr:
		return true
	}
	return false
}

type Payment struct {
	ID            int64           `gorm:"primaryKey" json:"id"`
	BookingID     int64           `gorm:"not null;uniqueIndex" json:"booking_id"`
	Booking       *Booking        `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"-"`
	TransactionID *string         `gorm:"type:varchar(100);uniqueIndex" json:"transaction_id"`
	Reference     string          `gorm:"type:varchar(100);not null;uniqueIndex" json:"reference"`
	CheckoutURL   string          `gorm:"type:text" json:"checkout_url"`
	Amount        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency      string          `gorm:"type:varchar(3);not null" json:"currency"`
	PaymentMethod PaymentMethod   `gorm:"type:varchar(20);not null" json:"payment_method"`
	Status        PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	FirstName     string          `gorm:"type:varchar(100)" json:"first_name"`
	LastName      string          `gorm:"type:varchar(100)" json:"last_name"`
	Email         string          `gorm:"type:varchar(254)" json:"email"`
	PhoneNumber   string          `gorm:"type:varchar(20)" json:"phone_number"`
	InitiatedAt   time.Time       `json:"payment_initiated_at"`
	CompletedAt   *time.Time      `json:"payment_completed_at"`
	FailureReason string          `gorm:"type:text" json:"failure_reason"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }
