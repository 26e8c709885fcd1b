package review

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"staybook/internal/domain"
	"staybook/internal/middleware"
	"staybook/internal/pkg/validator"
	"staybook/internal/repository"
	"staybook/internal/testutil"
)

func TestService_Create(t *testing.T) {
	db := testutil.NewDB(t)
	host := testutil.CreateUser(t, db, domain.RoleHost)
	guest := testutil.CreateUser(t, db, domain.RoleGuest)
	other := testutil.CreateUser(t, db, domain.RoleGuest)
	l := testutil.CreateListing(t, db, host.ID)
	l2 := testutil.CreateListing(t, db, host.ID)
	stay := testutil.CreateBooking(t, db, l.ID, guest.ID, "2024-02-01", "2024-02-03", domain.BookingCompleted)
	otherStay := testutil.CreateBooking(t, db, l2.ID, other.ID, "2024-02-01", "2024-02-03", domain.BookingCompleted)

	svc := NewService(
		repository.NewReviewRepository(db),
		repository.NewListingRepository(db),
		repository.NewBookingRepository(db),
		zap.NewNop(),
	)
	ctx := context.Background()
	missing := int64(9999)

	tests := []struct {
		name      string
		userID    int64
		req       CreateReviewRequest
		wantField string
		wantErr   error
	}{
		{"unknown listing", guest.ID, CreateReviewRequest{ListingID: 9999, Rating: 4}, "listing_id", nil},
		{"unknown booking", guest.ID, CreateReviewRequest{ListingID: l.ID, BookingID: &missing, Rating: 4}, "booking_id", nil},
		{"someone else's booking", guest.ID, CreateReviewRequest{ListingID: l2.ID, BookingID: &otherStay.ID, Rating: 4}, "booking_id", nil},
		{"booking for another listing", guest.ID, CreateReviewRequest{ListingID: l2.ID, BookingID: &stay.ID, Rating: 4}, "booking_id", nil},
		{"valid", guest.ID, CreateReviewRequest{ListingID: l.ID, BookingID: &stay.ID, Rating: 5, Comment: " Lovely "}, "", nil},
		{"second review of same listing", guest.ID, CreateReviewRequest{ListingID: l.ID, Rating: 2}, "", ErrExists},
		{"another user may review", other.ID, CreateReviewRequest{ListingID: l.ID, Rating: 3}, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rv, err := svc.Create(ctx, tt.userID, tt.req)
			switch {
			case tt.wantField != "":
				var fe validator.FieldErrors
				require.ErrorAs(t, err, &fe)
				assert.Contains(t, fe, tt.wantField)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.req.Rating, rv.Rating)
				assert.Equal(t, strings.TrimSpace(tt.req.Comment), rv.Comment)
			}
		})
	}

	items, total, err := svc.List(ctx, repository.ReviewFilter{ListingID: l.ID, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)
}

func TestService_UpdateDelete_AuthorOnly(t *testing.T) {
	db := testutil.NewDB(t)
	host := testutil.CreateUser(t, db, domain.RoleHost)
	author := testutil.CreateUser(t, db, domain.RoleGuest)
	l := testutil.CreateListing(t, db, host.ID)

	svc := NewService(repository.NewReviewRepository(db), repository.NewListingRepository(db), repository.NewBookingRepository(db), zap.NewNop())
	ctx := context.Background()

	rv, err := svc.Create(ctx, author.ID, CreateReviewRequest{ListingID: l.ID, Rating: 3})
	require.NoError(t, err)

	rating := 4
	_, err = svc.Update(ctx, host.ID, rv.ID, UpdateReviewRequest{Rating: &rating})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(ctx, author.ID, rv.ID, UpdateReviewRequest{Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Rating)

	assert.ErrorIs(t, svc.Delete(ctx, host.ID, rv.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, author.ID, rv.ID))
	_, err = svc.Get(ctx, rv.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandler_Reviews(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	host := testutil.CreateUser(t, db, domain.RoleHost)
	guest := testutil.CreateUser(t, db, domain.RoleGuest)
	l := testutil.CreateListing(t, db, host.ID)

	svc := NewService(repository.NewReviewRepository(db), repository.NewListingRepository(db), repository.NewBookingRepository(db), zap.NewNop())
	h := NewHandler(svc)

	r := gin.New()
	v1 := r.Group("/api/v1")
	h.RegisterPublicRoutes(v1)
	protected := v1.Group("")
	protected.Use(func(c *gin.Context) { c.Set(middleware.CtxUserID, guest.ID) })
	h.RegisterProtectedRoutes(protected)

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}
	listingID := strconv.FormatInt(l.ID, 10)

	w := post(`{"listing_id":` + listingID + `,"rating":6}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"rating"`)

	w = post(`{"listing_id":` + listingID + `,"rating":5,"comment":"Great"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = post(`{"listing_id":` + listingID + `,"rating":1}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "REVIEW_EXISTS")

	for _, path := range []string{"/api/v1/listings/" + listingID + "/reviews", "/api/v1/reviews?listing_id=" + listingID} {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code, path)

		var resp struct {
			Data []ReviewResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1, path)
		assert.Equal(t, "Great", resp.Data[0].Comment)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reviews?listing_id=x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
