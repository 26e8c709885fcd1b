package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const ReferencePrefix = "staybook-"

// ErrGateway wraps every failure coming back from the payment gateway,
// transport errors included.
var ErrGateway = errors.New("payment gateway error")

// Verification statuses reported by the gateway.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusPending = "pending"
)

type ChapaClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

type ChapaConfig struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

type Customization struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type InitiateRequest struct {
	Amount        decimal.Decimal
	Currency      string
	Email         string
	FirstName     string
	LastName      string
	Phone         string
	Reference     string
	CallbackURL   string
	ReturnURL     string
	Customization *Customization
}

type InitiateResult struct {
	CheckoutURL string
	Reference   string
}

type VerifyResult struct {
	Status        string
	Reference     string
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	Raw           json.RawMessage
}

type Bank struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug,omitempty"`
	Currency      string `json:"currency,omitempty"`
	AccountLength int    `json:"acct_length,omitempty"`
	Active        int    `json:"active,omitempty"`
}

// Gateway wire models
type initializePayload struct {
	Amount        string        `json:"amount"`
	Currency      string        `json:"currency"`
	Email         string        `json:"email"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	PhoneNumber   string        `json:"phone_number,omitempty"`
	TxRef         string        `json:"tx_ref"`
	CallbackURL   string        `json:"callback_url"`
	ReturnURL     string        `json:"return_url"`
	Customization Customization `json:"customization"`
}

type envelope struct {
	Message json.RawMessage `json:"message"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
}

type initializeData struct {
	CheckoutURL string `json:"checkout_url"`
}

type verifyData struct {
	Status    string          `json:"status"`
	TxRef     string          `json:"tx_ref"`
	Reference string          `json:"reference"`
	Amount    json.RawMessage `json:"amount"`
	Currency  string          `json:"currency"`
}

var defaultCustomization = Customization{
	Title:       "StayBook Booking",
	Description: "Payment for travel booking",
}

func NewChapaClient(cfg ChapaConfig) *ChapaClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &ChapaClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// NewReference returns a fresh transaction reference for the gateway.
func NewReference() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return ReferencePrefix + id[:12]
}

func (c *ChapaClient) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	payload := initializePayload{
		Amount:        req.Amount.StringFixed(2),
		Currency:      req.Currency,
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		PhoneNumber:   req.Phone,
		TxRef:         req.Reference,
		CallbackURL:   req.CallbackURL,
		ReturnURL:     req.ReturnURL,
		Customization: defaultCustomization,
	}
	if req.Customization != nil {
		payload.Customization = *req.Customization
	}

	env, err := c.do(ctx, http.MethodPost, "/transaction/initialize", payload)
	if err != nil {
		return nil, fmt.Errorf("initialize payment: %w", err)
	}

	var data initializeData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.CheckoutURL == "" {
		return nil, fmt.Errorf("initialize payment: %w: response has no checkout url", ErrGateway)
	}

	return &InitiateResult{
		CheckoutURL: data.CheckoutURL,
		Reference:   req.Reference,
	}, nil
}

func (c *ChapaClient) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	env, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, fmt.Errorf("verify payment: %w", err)
	}

	var data verifyData
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("verify payment: %w: decode data: %v", ErrGateway, err)
		}
	}

	res := &VerifyResult{
		Status:        strings.ToLower(data.Status),
		Reference:     data.TxRef,
		TransactionID: data.Reference,
		Currency:      data.Currency,
		Raw:           env.Data,
	}
	if res.Reference == "" {
		res.Reference = reference
	}
	if amt, err := parseAmount(data.Amount); err == nil {
		res.Amount = amt
	}
	return res, nil
}

func (c *ChapaClient) Banks(ctx context.Context) ([]Bank, error) {
	env, err := c.do(ctx, http.MethodGet, "/banks", nil)
	if err != nil {
		return nil, fmt.Errorf("list banks: %w", err)
	}

	banks := []Bank{}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &banks); err != nil {
			return nil, fmt.Errorf("list banks: %w: decode data: %v", ErrGateway, err)
		}
	}
	return banks, nil
}

func (c *ChapaClient) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrGateway, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := messageText(env.Message)
		if decodeErr != nil || msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s", ErrGateway, msg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrGateway, decodeErr)
	}
	return &env, nil
}

// messageText flattens the gateway "message" field, which is either a
// string or an object of field -> []string validation messages.
func messageText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var fields map[string][]string
	if err := json.Unmarshal(raw, &fields); err == nil {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+strings.Join(fields[k], ", "))
		}
		return strings.Join(parts, "; ")
	}
	return string(raw)
}

func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 {
		return decimal.Zero, errors.New("empty amount")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return decimal.NewFromString(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(f), nil
}
