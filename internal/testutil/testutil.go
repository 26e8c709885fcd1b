// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"staybook/internal/database"
	"staybook/internal/domain"
)

var seq atomic.Int64

// NewDB opens a private in-memory SQLite database with the full schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := database.Connect(dsn, database.Options{Silent: true})
	require.NoError(t, err, "open sqlite")
	require.NoError(t, database.Migrate(db), "migrate")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewFileDB opens a SQLite file under t.TempDir() with a regular connection
// pool, for tests that need real concurrent transactions.
func NewFileDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Connect("file:"+filepath.Join(t.TempDir(), "staybook.db"), database.Options{Silent: true})
	require.NoError(t, err, "open sqlite")
	require.NoError(t, database.Migrate(db), "migrate")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, role domain.UserRole) *domain.User {
	t.Helper()
	n := seq.Add(1)
	u := &domain.User{
		Username:     fmt.Sprintf("user%d", n),
		Email:        fmt.Sprintf("user%d@example.com", n),
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     fmt.Sprintf("User%d", n),
		Role:         role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func CreateListing(t *testing.T, db *gorm.DB, hostID int64, mutate ...func(l *domain.Listing)) *domain.Listing {
	t.Helper()
	l := &domain.Listing{
		HostID:        hostID,
		Title:         "Sea view apartment",
		Description:   "Two rooms near the beach",
		Address:       "1 Shore Rd",
		City:          "Accra",
		Country:       "Ghana",
		PropertyType:  domain.PropertyApartment,
		PricePerNight: decimal.RequireFromString("120.00"),
		MaxGuests:     4,
		Bedrooms:      2,
		Bathrooms:     1,
		Amenities:     []string{"WiFi", "Kitchen"},
		IsAvailable:   true,
	}
	for _, m := range mutate {
		m(l)
	}
	require.NoError(t, db.Omit("Host").Create(l).Error)
	return l
}

func CreateBooking(t *testing.T, db *gorm.DB, listingID, guestID int64, checkIn, checkOut string, status domain.BookingStatus) *domain.Booking {
	t.Helper()
	b := &domain.Booking{
		ListingID:      listingID,
		GuestID:        guestID,
		CheckIn:        Date(t, checkIn),
		CheckOut:       Date(t, checkOut),
		NumberOfGuests: 2,
		TotalPrice:     decimal.RequireFromString("240.00"),
		Status:         status,
	}
	require.NoError(t, db.Omit("Listing", "Guest").Create(b).Error)
	return b
}

func Date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}
