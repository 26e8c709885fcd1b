package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"staybook/internal/config"
	"staybook/internal/external"
	"staybook/internal/metrics"
	"staybook/internal/notification"
	"staybook/internal/pkg/jwt"
	"staybook/internal/testutil"
)

type TestResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorDetail    `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []notification.Email
}

func (m *recordingMailer) Send(_ context.Context, e notification.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return nil
}

type E2ETestSuite struct {
	router  http.Handler
	db      *gorm.DB
	queue   *notification.LocalQueue
	mailer  *recordingMailer
	metrics *metrics.Manager
}

// chapaStub approves every checkout and reports every transaction as paid.
func chapaStub() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/transaction/initialize":
			fmt.Fprint(w, `{"status":"success","data":{"checkout_url":"https://checkout.example/s/1"}}`)
		case strings.HasPrefix(r.URL.Path, "/transaction/verify/"):
			ref := strings.TrimPrefix(r.URL.Path, "/transaction/verify/")
			fmt.Fprintf(w, `{"status":"success","data":{"status":"success","tx_ref":%q,"reference":"AP-%s","amount":"480.00","currency":"ETB"}}`, ref, ref)
		default:
			http.NotFound(w, r)
		}
	}))
}

func setupTestSuite(t *testing.T) *E2ETestSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	gw := chapaStub()
	t.Cleanup(gw.Close)

	mailer := &recordingMailer{}
	queue := notification.NewLocalQueue(mailer, zap.NewNop(), notification.LocalQueueConfig{Workers: 1, Buffer: 10})
	t.Cleanup(func() { _ = queue.Close() })

	cfg := &config.Config{
		App:     config.AppConfig{Name: "staybook", Version: "test"},
		Payment: config.PaymentConfig{Currency: "ETB", CallbackURL: "http://test/cb", ReturnURL: "http://test/return"},
	}
	m := metrics.New("staybook_test")

	srv := New(Deps{
		Config:   cfg,
		DB:       db,
		StatsDB:  sqlx.NewDb(sqlDB, "sqlite"),
		JWT:      jwt.New("test_secret_key_32_characters_min", time.Hour),
		Gateway:  external.NewChapaClient(external.ChapaConfig{BaseURL: gw.URL, SecretKey: "test"}),
		Notifier: queue,
		Metrics:  m,
		Log:      zap.NewNop(),
	})

	return &E2ETestSuite{router: srv.Router(), db: db, queue: queue, mailer: mailer, metrics: m}
}

func (s *E2ETestSuite) makeRequest(t *testing.T, method, path string, body any, token string) (*httptest.ResponseRecorder, *TestResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp TestResponse
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	if resp.Error != nil {
		t.Logf("%s %s -> [%s] %s %v", method, path, resp.Error.Code, resp.Error.Message, resp.Error.Details)
	}
	return w, &resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type authData struct {
	Token string `json:"token"`
	User  struct {
		ID int64 `json:"id"`
	} `json:"user"`
}

func (s *E2ETestSuite) register(t *testing.T, username, role string) authData {
	t.Helper()
	w, resp := s.makeRequest(t, http.MethodPost, "/api/v1/auth/register", map[string]any{
		"username":   username,
		"email":      username + "@example.com",
		"password":   "Password123!",
		"first_name": strings.ToUpper(username[:1]) + username[1:],
		"role":       role,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	return decode[authData](t, resp.Data)
}

func TestHealthAndMetrics(t *testing.T) {
	s := setupTestSuite(t)

	w, _ := s.makeRequest(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"staybook","version":"test"}`, w.Body.String())

	w, _ = s.makeRequest(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "staybook_test_http_requests_total")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := setupTestSuite(t)

	for _, path := range []string{"/api/v1/bookings", "/api/v1/payments", "/api/v1/users/me"} {
		w, resp := s.makeRequest(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		require.NotNil(t, resp.Error, path)
		assert.Equal(t, "AUTH_HEADER_MISSING", resp.Error.Code)
	}

	w, _ := s.makeRequest(t, http.MethodGet, "/api/v1/bookings", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStoredRoleOverridesTokenClaim(t *testing.T) {
	s := setupTestSuite(t)
	host := s.register(t, "hedda", "host")
	listing := map[string]any{
		"title":           "Garden flat",
		"city":            "Hawassa",
		"country":         "Ethiopia",
		"property_type":   "apartment",
		"price_per_night": "80.00",
		"max_guests":      2,
	}

	w, _ := s.makeRequest(t, http.MethodPatch, fmt.Sprintf("/api/v1/users/%d", host.User.ID), map[string]any{"role": "guest"}, host.Token)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := s.makeRequest(t, http.MethodPost, "/api/v1/listings", listing, host.Token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)

	w, _ = s.makeRequest(t, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", host.User.ID), nil, host.Token)
	require.Equal(t, http.StatusNoContent, w.Code)

	w, resp = s.makeRequest(t, http.MethodGet, "/api/v1/users/me", nil, host.Token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "USER_NOT_FOUND", resp.Error.Code)
}

// Host lists a place, guest books and pays, then reviews the stay.
func TestFlow_BookPayReview(t *testing.T) {
	s := setupTestSuite(t)

	host := s.register(t, "hostina", "host")
	guest := s.register(t, "gustav", "")

	var listingID int64
	t.Run("host creates listing", func(t *testing.T) {
		w, resp := s.makeRequest(t, http.MethodPost, "/api/v1/listings", map[string]any{
			"title":           "Lakeside cottage",
			"city":            "Bahir Dar",
			"country":         "Ethiopia",
			"property_type":   "cottage",
			"price_per_night": "120.00",
			"max_guests":      4,
			"amenities":       []string{"WiFi", "Fireplace"},
		}, host.Token)
		require.Equal(t, http.StatusCreated, w.Code)
		listingID = decode[struct {
			ID int64 `json:"id"`
		}](t, resp.Data).ID
	})

	t.Run("guest cannot create listing", func(t *testing.T) {
		w, _ := s.makeRequest(t, http.MethodPost, "/api/v1/listings", map[string]any{
			"title": "x", "city": "y", "country": "z", "property_type": "house", "price_per_night": 1, "max_guests": 1,
		}, guest.Token)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("booking validation", func(t *testing.T) {
		w, resp := s.makeRequest(t, http.MethodPost, "/api/v1/bookings", map[string]any{
			"listing_id": listingID, "check_in": "2024-05-10", "check_out": "2024-05-08", "number_of_guests": 6,
		}, guest.Token)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		assert.Equal(t, "Check-out date must be after check-in date.", resp.Error.Details["check_out"])
		assert.Equal(t, "Number of guests (6) exceeds maximum guests allowed (4) for this listing.", resp.Error.Details["number_of_guests"])
	})

	var bookingID int64
	t.Run("guest books", func(t *testing.T) {
		w, resp := s.makeRequest(t, http.MethodPost, "/api/v1/bookings", map[string]any{
			"listing_id": listingID, "check_in": "2024-05-10", "check_out": "2024-05-14", "number_of_guests": 2,
		}, guest.Token)
		require.Equal(t, http.StatusCreated, w.Code)
		b := decode[struct {
			ID         int64  `json:"id"`
			TotalPrice string `json:"total_price"`
			Status     string `json:"status"`
		}](t, resp.Data)
		bookingID = b.ID
		assert.Equal(t, "480.00", b.TotalPrice)
		assert.Equal(t, "pending", b.Status)

		w, resp = s.makeRequest(t, http.MethodPost, "/api/v1/bookings", map[string]any{
			"listing_id": listingID, "check_in": "2024-05-12", "check_out": "2024-05-15", "number_of_guests": 1,
		}, guest.Token)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "BOOKING_CONFLICT", resp.Error.Code)
	})

	t.Run("host sees the booking", func(t *testing.T) {
		w, resp := s.makeRequest(t, http.MethodGet, "/api/v1/bookings?as=host", nil, host.Token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]json.RawMessage](t, resp.Data), 1)
	})

	var paymentID int64
	var reference string
	t.Run("guest pays", func(t *testing.T) {
		w, resp := s.makeRequest(t, http.MethodPost, "/api/v1/payments", map[string]any{"booking_id": bookingID}, guest.Token)
		require.Equal(t, http.StatusCreated, w.Code)
		p := decode[struct {
			ID          int64  `json:"id"`
			Reference   string `json:"reference"`
			CheckoutURL string `json:"checkout_url"`
			Amount      string `json:"amount"`
		}](t, resp.Data)
		paymentID, reference = p.ID, p.Reference
		assert.Equal(t, "https://checkout.example/s/1", p.CheckoutURL)
		assert.Equal(t, "480.00", p.Amount)

		w, resp = s.makeRequest(t, http.MethodPost, "/api/v1/payments", map[string]any{"booking_id": bookingID}, guest.Token)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "PAYMENT_EXISTS", resp.Error.Code)
	})

	t.Run("gateway callback confirms", func(t *testing.T) {
		w, _ := s.makeRequest(t, http.MethodGet, "/api/v1/payments/callback?trx_ref="+reference, nil, "")
		require.Equal(t, http.StatusOK, w.Code)

		w, resp := s.makeRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/payments/%d", paymentID), nil, guest.Token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "completed", decode[struct {
			Status string `json:"status"`
		}](t, resp.Data).Status)

		w, resp = s.makeRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/bookings/%d", bookingID), nil, guest.Token)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "confirmed", decode[struct {
			Status string `json:"status"`
		}](t, resp.Data).Status)
	})

	t.Run("guest reviews once", func(t *testing.T) {
		body := map[string]any{"listing_id": listingID, "booking_id": bookingID, "rating": 5, "comment": "Quiet and clean"}
		w, _ := s.makeRequest(t, http.MethodPost, "/api/v1/reviews", body, guest.Token)
		require.Equal(t, http.StatusCreated, w.Code)

		w, resp := s.makeRequest(t, http.MethodPost, "/api/v1/reviews", body, guest.Token)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "REVIEW_EXISTS", resp.Error.Code)
	})

	t.Run("host stats", func(t *testing.T) {
		w, resp := s.makeRequest(t, http.MethodGet, fmt.Sprintf("/api/v1/users/%d/stats", host.User.ID), nil, "")
		require.Equal(t, http.StatusOK, w.Code)
		stats := decode[map[string]json.RawMessage](t, resp.Data)
		assert.Contains(t, stats, "host")
	})

	t.Run("confirmation email sent", func(t *testing.T) {
		require.NoError(t, s.queue.Close())
		s.mailer.mu.Lock()
		defer s.mailer.mu.Unlock()
		require.Len(t, s.mailer.sent, 1)
		assert.Equal(t, "Booking Confirmation", s.mailer.sent[0].Subject)
		assert.Equal(t, []string{"gustav@example.com"}, s.mailer.sent[0].To)
		assert.Contains(t, s.mailer.sent[0].Body, "Listing: Lakeside cottage")
	})
}
