package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"staybook/internal/config"
)

type fakeMailer struct {
	mu    sync.Mutex
	sent  []Email
	err   error
	block chan struct{}
}

func (f *fakeMailer) Send(ctx context.Context, email Email) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

func (f *fakeMailer) Sent() []Email {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Email(nil), f.sent...)
}

func TestBookingConfirmation_Email(t *testing.T) {
	msg := NewBookingConfirmation(" guest@example.com ", 7, "Listing: Sea view\nCheck-in: 2024-05-10")
	email := msg.Email()

	assert.Equal(t, []string{"guest@example.com"}, email.To)
	assert.Equal(t, "Booking Confirmation", email.Subject)
	assert.Equal(t, "Thank you for your booking. Here are your booking details:\nListing: Sea view\nCheck-in: 2024-05-10", email.Body)
}

func TestDeliver_RequiresRecipient(t *testing.T) {
	m := &fakeMailer{}
	err := Deliver(context.Background(), m, NewBookingConfirmation("", 1, "x"))
	assert.Error(t, err)
	assert.Empty(t, m.Sent())
}

func TestLocalQueue_DeliversAndDrainsOnClose(t *testing.T) {
	m := &fakeMailer{}
	q := NewLocalQueue(m, zap.NewNop(), LocalQueueConfig{Workers: 2, Buffer: 10})

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, q.Enqueue(context.Background(), NewBookingConfirmation("a@b.c", i, "s")))
	}
	require.NoError(t, q.Close())

	assert.Len(t, m.Sent(), 5)
	assert.ErrorIs(t, q.Enqueue(context.Background(), NewBookingConfirmation("a@b.c", 6, "s")), ErrQueueClosed)
	assert.NoError(t, q.Close())
}

func TestLocalQueue_DropsWhenFull(t *testing.T) {
	m := &fakeMailer{block: make(chan struct{})}
	q := NewLocalQueue(m, zap.NewNop(), LocalQueueConfig{Workers: 1, Buffer: 1, SendTimeout: time.Second})

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, NewBookingConfirmation("a@b.c", 1, "s")))

	// one message may sit in the worker, one in the buffer; the rest drop
	var full bool
	for i := int64(2); i < 10; i++ {
		if errors.Is(q.Enqueue(ctx, NewBookingConfirmation("a@b.c", i, "s")), ErrQueueFull) {
			full = true
			break
		}
	}
	assert.True(t, full)

	close(m.block)
	require.NoError(t, q.Close())
}

func TestLocalQueue_MailerErrorIsSwallowed(t *testing.T) {
	m := &fakeMailer{err: errors.New("smtp down")}
	q := NewLocalQueue(m, zap.NewNop(), LocalQueueConfig{})

	require.NoError(t, q.Enqueue(context.Background(), NewBookingConfirmation("a@b.c", 1, "s")))
	require.NoError(t, q.Close())
	assert.Empty(t, m.Sent())
}

func TestWorker_Handle(t *testing.T) {
	m := &fakeMailer{}
	w := NewWorker(nil, "bookings.confirmation", "staybook-mailers", m, zap.NewNop(), time.Second)

	data, err := json.Marshal(NewBookingConfirmation("guest@example.com", 3, "summary"))
	require.NoError(t, err)

	w.handle(data)
	w.handle([]byte("not json"))
	w.handle([]byte(`{"type":"something.else","to":"x@y.z"}`))

	sent := m.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"guest@example.com"}, sent[0].To)
}

func TestNewSMTPMailer_RequiresHost(t *testing.T) {
	_, err := NewSMTPMailer(SMTPConfig{Port: 587, From: "noreply@example.com"}, zap.NewNop())
	assert.Error(t, err)

	mailer, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 465, From: "noreply@example.com", Encryption: "ssl"}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, mailer.dialer.SSL)
}

func TestNewMailerFromConfig(t *testing.T) {
	m, err := NewMailerFromConfig(config.SMTPConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)

	m, err = NewMailerFromConfig(config.SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com", Encryption: "starttls"}, zap.NewNop())
	require.NoError(t, err)
	smtp, ok := m.(*SMTPMailer)
	require.True(t, ok)
	assert.False(t, smtp.dialer.SSL)
	assert.NotNil(t, smtp.dialer.TLSConfig)

	_, err = NewMailerFromConfig(config.SMTPConfig{Host: "smtp.example.com"}, zap.NewNop())
	assert.Error(t, err)
}
