package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull   = errors.New("notification queue is full")
	ErrQueueClosed = errors.New("notification queue is closed")
)

// Queue accepts booking confirmations for asynchronous delivery.
type Queue interface {
	Enqueue(ctx context.Context, msg BookingConfirmation) error
	Close() error
}

// Deliver renders msg and hands it to the mailer. Shared by the in-process
// queue and the NATS worker.
func Deliver(ctx context.Context, mailer Mailer, msg BookingConfirmation) error {
	if err := msg.validate(); err != nil {
		return err
	}
	return mailer.Send(ctx, msg.Email())
}

type LocalQueueConfig struct {
	Workers     int
	Buffer      int
	SendTimeout time.Duration
}

// LocalQueue is a bounded in-process queue drained by a fixed set of worker
// goroutines. Enqueue never blocks: when the buffer is full the message is
// dropped.
type LocalQueue struct {
	mailer  Mailer
	log     *zap.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	ch     chan BookingConfirmation
	wg     sync.WaitGroup
}

func NewLocalQueue(mailer Mailer, log *zap.Logger, cfg LocalQueueConfig) *LocalQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 100
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}

	q := &LocalQueue{
		mailer:  mailer,
		log:     log,
		timeout: cfg.SendTimeout,
		ch:      make(chan BookingConfirmation, cfg.Buffer),
	}
	for i := 0; i < cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

func (q *LocalQueue) Enqueue(_ context.Context, msg BookingConfirmation) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- msg:
		return nil
	default:
		q.log.Warn("notification dropped, queue full", zap.Int64("booking_id", msg.BookingID))
		return ErrQueueFull
	}
}

// Close stops accepting messages and waits until queued ones are sent.
func (q *LocalQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

func (q *LocalQueue) worker() {
	defer q.wg.Done()
	for msg := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if err := Deliver(ctx, q.mailer, msg); err != nil {
			q.log.Error("failed to send booking confirmation",
				zap.Int64("booking_id", msg.BookingID),
				zap.String("to", msg.To),
				zap.Error(err),
			)
		}
		cancel()
	}
}
