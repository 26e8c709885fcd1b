package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"staybook/internal/domain"
	"staybook/internal/pkg/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestJWTAuth_ValidToken(t *testing.T) {
	jwtService := jwt.New("test-secret-123", 1*time.Hour)
	validToken, _ := jwtService.GenerateToken(42, "amina", "host")

	router := gin.New()
	router.Use(JWTAuth(jwtService))
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":  c.GetInt64(CtxUserID),
			"username": c.GetString(CtxUsername),
			"role":     c.GetString(CtxRole),
		})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+validToken)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":42,"username":"amina","role":"host"}`, w.Body.String())
}

func TestJWTAuth_Rejections(t *testing.T) {
	signer := jwt.New("other-secret", time.Hour)
	foreign, _ := signer.GenerateToken(1, "x", "guest")
	expired, _ := jwt.New("secret", -time.Minute).GenerateToken(1, "x", "guest")

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"no header", "", "AUTH_HEADER_MISSING"},
		{"basic auth", "Basic dGVzdA==", "INVALID_AUTH_FORMAT"},
		{"garbage token", "Bearer invalid-jwt-here", "INVALID_TOKEN"},
		{"wrong signature", "Bearer " + foreign, "INVALID_TOKEN"},
		{"expired", "Bearer " + expired, "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(JWTAuth(jwt.New("secret", time.Hour)))
			router.GET("/protected", func(c *gin.Context) {
				t.Fatal("handler should not be reached")
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name string
		role string
		want int
	}{
		{"allowed", "host", http.StatusOK},
		{"other role", "guest", http.StatusForbidden},
		{"no role", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(func(c *gin.Context) {
				if tt.role != "" {
					c.Set(CtxRole, tt.role)
				}
			})
			router.GET("/", RequireRole("host"), func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

type userLookupFunc func(ctx context.Context, id int64) (*domain.User, error)

func (f userLookupFunc) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return f(ctx, id)
}

func TestCurrentRole(t *testing.T) {
	users := userLookupFunc(func(_ context.Context, id int64) (*domain.User, error) {
		switch id {
		case 1:
			return &domain.User{ID: 1, Role: domain.RoleGuest}, nil
		case 2:
			return &domain.User{ID: 2, Role: domain.RoleHost}, nil
		case 3:
			return nil, errors.New("connection reset")
		}
		return nil, gorm.ErrRecordNotFound
	})

	tests := []struct {
		name     string
		userID   int64
		claim    string
		want     int
		wantCode string
	}{
		{"demoted host loses host routes", 1, "host", http.StatusForbidden, "FORBIDDEN"},
		{"promoted guest gains host routes", 2, "guest", http.StatusOK, ""},
		{"deleted account", 9, "host", http.StatusUnauthorized, "USER_NOT_FOUND"},
		{"lookup failure", 3, "host", http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(func(c *gin.Context) {
				c.Set(CtxUserID, tt.userID)
				c.Set(CtxRole, tt.claim)
			}, CurrentRole(users))
			router.POST("/listings", RequireRole("host"), func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/listings", nil))
			assert.Equal(t, tt.want, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"https://app.staybook.example"}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.staybook.example")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.staybook.example", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryAndRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), RequestLogger(zap.NewNop()), Recovery(zap.NewNop()))
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	assert.Equal(t, "req-1", w.Header().Get(HeaderRequestID))
}
