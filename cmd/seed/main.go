package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staybook/internal/config"
	"staybook/internal/database"
	"staybook/internal/domain"
	"staybook/internal/pkg/logger"
	"staybook/internal/repository"
)

const seedPassword = "password123"

type place struct{ city, country string }

var cities = []place{
	{"New York", "United States"}, {"London", "United Kingdom"}, {"Paris", "France"},
	{"Tokyo", "Japan"}, {"Sydney", "Australia"}, {"Dubai", "United Arab Emirates"},
	{"Barcelona", "Spain"}, {"Rome", "Italy"}, {"Bangkok", "Thailand"},
	{"Amsterdam", "Netherlands"}, {"Berlin", "Germany"}, {"Singapore", "Singapore"},
	{"Istanbul", "Turkey"}, {"Cairo", "Egypt"}, {"Cape Town", "South Africa"},
}

var amenityPool = []string{
	"WiFi", "Air Conditioning", "Heating", "Kitchen", "Washer", "Dryer",
	"TV", "Parking", "Pool", "Gym", "Hot Tub", "Fireplace", "Balcony",
	"Garden", "Beach Access", "Mountain View", "City View", "Elevator",
	"Security System", "Pet Friendly", "Smoking Allowed", "Wheelchair Accessible",
}

var titles = map[domain.PropertyType][]string{
	domain.PropertyApartment: {"Cozy Apartment in %s", "Modern %s Apartment", "Stylish Downtown %s Apartment", "Luxury %s Apartment", "Spacious %s Apartment"},
	domain.PropertyHouse:     {"Beautiful House in %s", "Family-Friendly %s House", "Charming %s Home", "Elegant %s House", "Traditional %s House"},
	domain.PropertyHotel:     {"Grand %s Hotel", "Boutique %s Hotel", "Luxury %s Hotel", "Central %s Hotel", "Historic %s Hotel"},
	domain.PropertyVilla:     {"Luxury Villa in %s", "Private %s Villa", "Beachfront %s Villa", "Modern %s Villa", "Elegant %s Villa"},
	domain.PropertyCottage:   {"Charming Cottage in %s", "Cozy %s Cottage", "Rustic %s Cottage", "Quaint %s Cottage", "Traditional %s Cottage"},
	domain.PropertyHostel:    {"Budget-Friendly %s Hostel", "Central %s Hostel", "Modern %s Hostel", "Social %s Hostel", "Clean %s Hostel"},
	domain.PropertyResort:    {"Luxury %s Resort", "Beach %s Resort", "All-Inclusive %s Resort", "Family %s Resort", "Boutique %s Resort"},
}

// nightly price range per property type, whole currency units
var priceRanges = map[domain.PropertyType][2]int{
	domain.PropertyHostel:    {15, 50},
	domain.PropertyApartment: {50, 200},
	domain.PropertyHouse:     {80, 300},
	domain.PropertyCottage:   {60, 250},
	domain.PropertyHotel:     {100, 400},
	domain.PropertyVilla:     {200, 800},
	domain.PropertyResort:    {150, 600},
}

var descriptions = []string{
	"A beautiful and well-maintained property perfect for your stay. Located in a prime area with easy access to local attractions.",
	"Experience comfort and luxury in this stunning property. Fully equipped with modern amenities and excellent service.",
	"Perfect for families and groups. This spacious property offers everything you need for a memorable vacation.",
	"Located in the heart of the city, this property provides easy access to restaurants, shops, and cultural sites.",
	"A peaceful retreat offering tranquility and relaxation. Ideal for those seeking a quiet getaway.",
	"Modern design meets comfort in this exceptional property. Features top-of-the-line amenities and stunning views.",
	"Historic charm with modern conveniences. This unique property offers a one-of-a-kind experience.",
	"Beachfront property with breathtaking ocean views. Perfect for beach lovers and water sports enthusiasts.",
}

var streets = []string{"Main St", "Park Ave", "Broadway", "Ocean Dr", "Mountain Rd", "Garden Ln", "Sunset Blvd"}

var specialRequests = []string{
	"Late check-in requested",
	"Early check-in if possible",
	"Extra towels needed",
	"Quiet room preferred",
	"High floor preferred",
}

var comments = map[int][]string{
	5: {"Excellent stay! Highly recommended.", "Perfect location and amazing amenities.", "One of the best places I've stayed.", "Absolutely wonderful experience!", "Exceeded all expectations."},
	4: {"Great place, would stay again.", "Nice property with good amenities.", "Comfortable and well-located.", "Good value for money.", "Enjoyed my stay here."},
	3: {"Decent place, nothing special.", "Average accommodation.", "It was okay, but could be better.", "Met basic expectations."},
	2: {"Not as expected.", "Some issues during the stay.", "Could use improvements."},
	1: {"Disappointing experience.", "Would not recommend.", "Many issues to address."},
}

type seeder struct {
	db       *gorm.DB
	bookings *repository.BookingRepository
	rnd      *rand.Rand
	log      *zap.Logger
	hash     string
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	numListings := flag.Int("listings", 20, "number of listings to create")
	withBookings := flag.Bool("bookings", false, "create sample bookings")
	withReviews := flag.Bool("reviews", false, "create sample reviews")
	reset := flag.Bool("clear", false, "delete existing listings, bookings and reviews first")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Encoding: "console"})
	defer func() { _ = log.Sync() }()

	db, err := database.Connect(cfg.Database.URL, database.Options{Log: log, Silent: true})
	if err != nil {
		log.Fatal("connect database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("migrate database", zap.Error(err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("hash password", zap.Error(err))
	}

	s := &seeder{
		db:       db,
		bookings: repository.NewBookingRepository(db),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		log:      log,
		hash:     string(hash),
	}
	ctx := context.Background()

	if *reset {
		log.Warn("clearing existing data")
		if err := s.clear(); err != nil {
			log.Fatal("clear data", zap.Error(err))
		}
	}

	hosts, err := s.users("host", domain.RoleHost, []string{"John Smith", "Sarah Johnson", "Michael Brown", "Emily Davis", "David Wilson"})
	if err != nil {
		log.Fatal("create hosts", zap.Error(err))
	}

	listings, err := s.listings(hosts, *numListings)
	if err != nil {
		log.Fatal("create listings", zap.Error(err))
	}
	log.Info("listings created", zap.Int("count", len(listings)))

	if *withBookings {
		guests, err := s.users("guest", domain.RoleGuest, []string{"Guest1 User", "Guest2 User", "Guest3 User", "Guest4 User", "Guest5 User"})
		if err != nil {
			log.Fatal("create guests", zap.Error(err))
		}
		n, err := s.seedBookings(ctx, listings, guests)
		if err != nil {
			log.Fatal("create bookings", zap.Error(err))
		}
		log.Info("bookings created", zap.Int("count", n))
	}

	if *withReviews {
		n, err := s.seedReviews(listings)
		if err != nil {
			log.Fatal("create reviews", zap.Error(err))
		}
		log.Info("reviews created", zap.Int("count", n))
	}

	log.Info("seeding completed", zap.String("password", seedPassword))
}

func (s *seeder) clear() error {
	for _, model := range []any{&domain.Payment{}, &domain.Review{}, &domain.Booking{}, &domain.Listing{}} {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

// users fetches or creates prefix1..prefixN.
func (s *seeder) users(prefix string, role domain.UserRole, names []string) ([]domain.User, error) {
	out := make([]domain.User, 0, len(names))
	for i, name := range names {
		first, last, _ := strings.Cut(name, " ")
		u := domain.User{
			Username:     fmt.Sprintf("%s%d", prefix, i+1),
			Email:        fmt.Sprintf("%s%d@example.com", prefix, i+1),
			PasswordHash: s.hash,
			FirstName:    first,
			LastName:     last,
			Role:         role,
		}
		err := s.db.Where(domain.User{Username: u.Username}).Attrs(u).FirstOrCreate(&u).Error
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (s *seeder) listings(hosts []domain.User, n int) ([]domain.Listing, error) {
	types := domain.PropertyTypes
	out := make([]domain.Listing, 0, n)

	for i := 0; i < n; i++ {
		where := cities[s.rnd.Intn(len(cities))]
		pt := types[s.rnd.Intn(len(types))]
		bedrooms, bathrooms, guests := s.sizes(pt)
		lo, hi := priceRanges[pt][0], priceRanges[pt][1]

		l := domain.Listing{
			HostID:        hosts[s.rnd.Intn(len(hosts))].ID,
			Title:         fmt.Sprintf(pick(s.rnd, titles[pt]), where.city),
			Description:   pick(s.rnd, descriptions),
			Address:       fmt.Sprintf("%d %s", s.rnd.Intn(9999)+1, pick(s.rnd, streets)),
			City:          where.city,
			Country:       where.country,
			PropertyType:  pt,
			PricePerNight: decimal.NewFromInt(int64(lo + s.rnd.Intn(hi-lo+1))),
			MaxGuests:     guests,
			Bedrooms:      bedrooms,
			Bathrooms:     bathrooms,
			Amenities:     s.amenities(),
			IsAvailable:   s.rnd.Intn(4) != 0,
		}
		if err := s.db.Omit(clause.Associations).Create(&l).Error; err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *seeder) sizes(pt domain.PropertyType) (bedrooms, bathrooms, guests int) {
	between := func(lo, hi int) int { return lo + s.rnd.Intn(hi-lo+1) }
	switch pt {
	case domain.PropertyHostel:
		return between(1, 4), between(1, 2), between(2, 8)
	case domain.PropertyApartment, domain.PropertyCottage:
		return between(1, 3), between(1, 2), between(2, 6)
	case domain.PropertyHouse, domain.PropertyVilla:
		return between(2, 6), between(2, 5), between(4, 12)
	default:
		return between(1, 4), between(1, 3), between(2, 8)
	}
}

func (s *seeder) amenities() []string {
	n := 3 + s.rnd.Intn(6)
	perm := s.rnd.Perm(len(amenityPool))[:n]
	out := make([]string, 0, n)
	for _, i := range perm {
		out = append(out, amenityPool[i])
	}
	return out
}

// seedBookings places stays between 30 days ago and 60 days ahead. Stays
// that collide with an existing booking are skipped.
func (s *seeder) seedBookings(ctx context.Context, listings []domain.Listing, guests []domain.User) (int, error) {
	var available []domain.Listing
	for _, l := range listings {
		if l.IsAvailable {
			available = append(available, l)
		}
	}
	if len(available) == 0 {
		s.log.Warn("no available listings to book")
		return 0, nil
	}

	statuses := []domain.BookingStatus{
		domain.BookingPending, domain.BookingConfirmed, domain.BookingConfirmed,
		domain.BookingCompleted, domain.BookingCancelled,
	}
	today := domain.TruncateDate(time.Now())
	created := 0

	for i := 0; i < min(15, len(available)*2); i++ {
		l := available[s.rnd.Intn(len(available))]
		nights := 1 + s.rnd.Intn(7)
		checkIn := today.AddDate(0, 0, s.rnd.Intn(91)-30)

		b := &domain.Booking{
			ListingID:      l.ID,
			GuestID:        guests[s.rnd.Intn(len(guests))].ID,
			CheckIn:        checkIn,
			CheckOut:       checkIn.AddDate(0, 0, nights),
			NumberOfGuests: 1 + s.rnd.Intn(l.MaxGuests),
			TotalPrice:     l.PricePerNight.Mul(decimal.NewFromInt(int64(nights))),
			Status:         statuses[s.rnd.Intn(len(statuses))],
		}
		if s.rnd.Intn(2) == 0 {
			b.SpecialRequests = pick(s.rnd, specialRequests)
		}

		if err := s.bookings.CreateExclusive(ctx, b, nil); err != nil {
			if errors.Is(err, repository.ErrBookingOverlap) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}

// seedReviews writes at most one review per (listing, user), with ratings
// weighted towards the positive end.
func (s *seeder) seedReviews(listings []domain.Listing) (int, error) {
	var users []domain.User
	if err := s.db.Find(&users).Error; err != nil {
		return 0, err
	}
	if len(users) == 0 || len(listings) == 0 {
		return 0, nil
	}

	created := 0
	for i := 0; i < min(20, len(listings)*2); i++ {
		l := listings[s.rnd.Intn(len(listings))]
		u := users[s.rnd.Intn(len(users))]

		var exists int64
		if err := s.db.Model(&domain.Review{}).Where("listing_id = ? AND user_id = ?", l.ID, u.ID).Count(&exists).Error; err != nil {
			return created, err
		}
		if exists > 0 {
			continue
		}

		rating := s.rating()
		rv := domain.Review{
			ListingID: l.ID,
			UserID:    u.ID,
			Rating:    rating,
			Comment:   pick(s.rnd, comments[rating]),
		}

		var stays []domain.Booking
		err := s.db.Where("guest_id = ? AND listing_id = ? AND status = ?", u.ID, l.ID, domain.BookingCompleted).
			Find(&stays).Error
		if err != nil {
			return created, err
		}
		if len(stays) > 0 {
			id := stays[s.rnd.Intn(len(stays))].ID
			rv.BookingID = &id
		}

		if err := s.db.Omit(clause.Associations).Create(&rv).Error; err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// rating draws 5..1 with weights 40, 30, 15, 10, 5.
func (s *seeder) rating() int {
	n := s.rnd.Intn(100)
	switch {
	case n < 40:
		return 5
	case n < 70:
		return 4
	case n < 85:
		return 3
	case n < 95:
		return 2
	}
	return 1
}

func pick(rnd *rand.Rand, items []string) string {
	return items[rnd.Intn(len(items))]
}
