package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"staybook/internal/domain"
	"staybook/internal/repository"
	"staybook/internal/testutil"
)

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) GenerateToken(userID int64, username, role string) (string, error) {
	args := m.Called(userID, username, role)
	return args.String(0), args.Error(1)
}

func (m *MockTokenIssuer) TTL() time.Duration {
	return time.Hour
}

func newTestService(t *testing.T) (*Service, *MockTokenIssuer) {
	t.Helper()
	db := testutil.NewDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	tokens := new(MockTokenIssuer)
	svc := NewService(
		repository.NewUserRepository(db),
		repository.NewStatsRepository(sqlx.NewDb(sqlDB, "sqlite")),
		tokens,
		zap.NewNop(),
	)
	return svc, tokens
}

func TestService_Register(t *testing.T) {
	svc, tokens := newTestService(t)
	ctx := context.Background()
	tokens.On("GenerateToken", mock.AnythingOfType("int64"), "amina", "host").Return("tok", nil).Once()

	u, token, err := svc.Register(ctx, RegisterRequest{
		Username: "amina",
		Email:    "Amina@Example.com",
		Password: "s3cret-pass",
		Role:     "host",
	})
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, domain.RoleHost, u.Role)
	assert.Equal(t, "amina@example.com", u.Email)
	assert.NotEqual(t, "s3cret-pass", u.PasswordHash)

	_, _, err = svc.Register(ctx, RegisterRequest{Username: "other", Email: "amina@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrUserExists)

	_, _, err = svc.Register(ctx, RegisterRequest{Username: "amina", Email: "new@example.com", Password: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrUserExists)

	tokens.AssertExpectations(t)
}

func TestService_RegisterDefaultsToGuest(t *testing.T) {
	svc, tokens := newTestService(t)
	tokens.On("GenerateToken", mock.Anything, mock.Anything, "guest").Return("tok", nil)

	u, _, err := svc.Register(context.Background(), RegisterRequest{Username: "kofi", Email: "kofi@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleGuest, u.Role)
}

func TestService_Login(t *testing.T) {
	svc, tokens := newTestService(t)
	ctx := context.Background()
	tokens.On("GenerateToken", mock.Anything, "kofi", "guest").Return("tok", nil)

	_, _, err := svc.Register(ctx, RegisterRequest{Username: "kofi", Email: "kofi@example.com", Password: "password1"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		login   string
		pass    string
		wantErr error
	}{
		{"by username", "kofi", "password1", nil},
		{"by email any case", "KOFI@example.com", "password1", nil},
		{"wrong password", "kofi", "password2", ErrInvalidCredentials},
		{"unknown user", "nobody", "password1", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, token, err := svc.Login(ctx, LoginRequest{Login: tt.login, Password: tt.pass})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "kofi", u.Username)
			assert.Equal(t, "tok", token)
		})
	}
}

func TestService_UpdateAndDelete_SelfOnly(t *testing.T) {
	svc, tokens := newTestService(t)
	ctx := context.Background()
	tokens.On("GenerateToken", mock.Anything, mock.Anything, mock.Anything).Return("tok", nil)

	a, _, err := svc.Register(ctx, RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "password1"})
	require.NoError(t, err)
	b, _, err := svc.Register(ctx, RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "password1"})
	require.NoError(t, err)

	first := "Alice"
	_, err = svc.Update(ctx, b.ID, a.ID, UpdateUserRequest{FirstName: &first})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(ctx, a.ID, a.ID, UpdateUserRequest{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.FirstName)
	assert.Equal(t, "alice", updated.Username)

	taken := "bob"
	_, err = svc.Update(ctx, a.ID, a.ID, UpdateUserRequest{Username: &taken})
	assert.ErrorIs(t, err, ErrUserExists)

	assert.ErrorIs(t, svc.Delete(ctx, b.ID, a.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, a.ID, a.ID))

	_, err = svc.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Stats(t *testing.T) {
	svc, tokens := newTestService(t)
	ctx := context.Background()
	tokens.On("GenerateToken", mock.Anything, mock.Anything, mock.Anything).Return("tok", nil)

	host, _, err := svc.Register(ctx, RegisterRequest{Username: "hostess", Email: "h@example.com", Password: "password1", Role: "host"})
	require.NoError(t, err)
	guest, _, err := svc.Register(ctx, RegisterRequest{Username: "guest", Email: "g@example.com", Password: "password1"})
	require.NoError(t, err)

	hs, err := svc.Stats(ctx, host.ID)
	require.NoError(t, err)
	require.NotNil(t, hs.Host)
	assert.Zero(t, hs.Host.Listings)

	gs, err := svc.Stats(ctx, guest.ID)
	require.NoError(t, err)
	assert.Nil(t, gs.Host)
	require.NotNil(t, gs.Guest)

	_, err = svc.Stats(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandler_RegisterValidationAndConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, tokens := newTestService(t)
	tokens.On("GenerateToken", mock.Anything, mock.Anything, mock.Anything).Return("tok", nil)

	r := gin.New()
	NewHandler(svc).RegisterPublicRoutes(r.Group("/api/v1"))

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := post(`{"username":"zo","email":"not-an-email","password":"short"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var bad struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bad))
	assert.Equal(t, "VALIDATION_ERROR", bad.Error.Code)
	assert.Contains(t, bad.Error.Details, "username")
	assert.Contains(t, bad.Error.Details, "email")
	assert.Contains(t, bad.Error.Details, "password")

	w = post(`{"username":"zola","email":"zola@example.com","password":"password1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"token":"tok"`)
	assert.NotContains(t, w.Body.String(), "password")

	w = post(`{"username":"zola","email":"zola2@example.com","password":"password1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "USERNAME_OR_EMAIL_EXISTS")
}
