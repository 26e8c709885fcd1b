package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *ChapaClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewChapaClient(ChapaConfig{BaseURL: srv.URL + "/", SecretKey: "CHASECK_TEST"})
}

func TestChapaClient_Initiate(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer CHASECK_TEST", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Hosted Link","status":"success","data":{"checkout_url":"https://checkout.chapa.co/pay/abc"}}`))
	})

	res, err := client.Initiate(context.Background(), InitiateRequest{
		Amount:      decimal.RequireFromString("240.5"),
		Currency:    "ETB",
		Email:       "guest@example.com",
		FirstName:   "Abebe",
		LastName:    "Kebede",
		Reference:   "staybook-0123456789ab",
		CallbackURL: "http://localhost/cb",
		ReturnURL:   "http://localhost/ret",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.chapa.co/pay/abc", res.CheckoutURL)
	assert.Equal(t, "staybook-0123456789ab", res.Reference)

	assert.Equal(t, "240.50", got["amount"])
	assert.Equal(t, "staybook-0123456789ab", got["tx_ref"])
	assert.NotContains(t, got, "phone_number")
	custom, ok := got["customization"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, custom["title"])
}

func TestChapaClient_Initiate_UpstreamError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"string message", http.StatusBadRequest, `{"message":"Invalid currency","status":"failed","data":null}`, "Invalid currency"},
		{"field messages", http.StatusBadRequest, `{"message":{"email":["The email must be a valid email address."]},"status":"failed"}`, "email: The email must be a valid email address."},
		{"no body", http.StatusUnauthorized, ``, "Unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.Initiate(context.Background(), InitiateRequest{Amount: decimal.NewFromInt(1), Reference: "r"})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrGateway)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestMessageText(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain string", `"Invalid API Key"`, "Invalid API Key"},
		{"field errors in key order", `{"phone_number":["The phone number is invalid."],"amount":["The amount field is required.","Must be numeric."],"email":["Invalid email."]}`,
			"amount: The amount field is required., Must be numeric.; email: Invalid email.; phone_number: The phone number is invalid."},
		{"empty", ``, ""},
		{"other json", `42`, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				assert.Equal(t, tt.want, messageText(json.RawMessage(tt.raw)))
			}
		})
	}
}

func TestChapaClient_Verify(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/transaction/verify/staybook-abc", r.URL.Path)
		_, _ = w.Write([]byte(`{"message":"Payment details","status":"success","data":{"status":"Success","tx_ref":"staybook-abc","reference":"APfQ2b1","amount":240,"currency":"ETB"}}`))
	})

	res, err := client.Verify(context.Background(), "staybook-abc")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "staybook-abc", res.Reference)
	assert.Equal(t, "APfQ2b1", res.TransactionID)
	assert.True(t, decimal.NewFromInt(240).Equal(res.Amount))
	assert.Equal(t, "ETB", res.Currency)
}

func TestChapaClient_Banks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/banks", r.URL.Path)
		_, _ = w.Write([]byte(`{"message":"Banks retrieved","data":[{"id":"96e41186","name":"Awash Bank","acct_length":13,"currency":"ETB","active":1}]}`))
	})

	banks, err := client.Banks(context.Background())
	require.NoError(t, err)
	require.Len(t, banks, 1)
	assert.Equal(t, "Awash Bank", banks[0].Name)
	assert.Equal(t, 13, banks[0].AccountLength)
}

func TestChapaClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := NewChapaClient(ChapaConfig{BaseURL: srv.URL})
	_, err := client.Verify(context.Background(), "x")
	assert.ErrorIs(t, err, ErrGateway)
}

func TestNewReference(t *testing.T) {
	a, b := NewReference(), NewReference()
	assert.True(t, strings.HasPrefix(a, ReferencePrefix))
	assert.Len(t, a, len(ReferencePrefix)+12)
	assert.NotEqual(t, a, b)
}
