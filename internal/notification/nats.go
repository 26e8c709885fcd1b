package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	connectWait   = 5 * time.Second
	maxReconnects = 5
	reconnectWait = 2 * time.Second
)

// Connect dials NATS with reconnect handling that reports through log.
func Connect(url, name string, log *zap.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(connectWait),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info("nats connection closed")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSQueue publishes confirmations for cmd/worker to deliver.
type NATSQueue struct {
	conn    *nats.Conn
	subject string
}

func NewNATSQueue(conn *nats.Conn, subject string) *NATSQueue {
	return &NATSQueue{conn: conn, subject: subject}
}

func (q *NATSQueue) Enqueue(_ context.Context, msg BookingConfirmation) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := q.conn.Publish(q.subject, data); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", q.subject, err)
	}
	return nil
}

// Close flushes pending publishes and closes the connection.
func (q *NATSQueue) Close() error {
	if err := q.conn.Drain(); err != nil {
		q.conn.Close()
		return err
	}
	return nil
}

// Worker consumes confirmations from NATS. Several workers sharing a queue
// group split the subject between them.
type Worker struct {
	conn        *nats.Conn
	subject     string
	queueGroup  string
	mailer      Mailer
	log         *zap.Logger
	sendTimeout time.Duration

	sub *nats.Subscription
}

func NewWorker(conn *nats.Conn, subject, queueGroup string, mailer Mailer, log *zap.Logger, sendTimeout time.Duration) *Worker {
	if sendTimeout <= 0 {
		sendTimeout = 30 * time.Second
	}
	return &Worker{
		conn:        conn,
		subject:     subject,
		queueGroup:  queueGroup,
		mailer:      mailer,
		log:         log,
		sendTimeout: sendTimeout,
	}
}

func (w *Worker) Start() error {
	sub, err := w.conn.QueueSubscribe(w.subject, w.queueGroup, func(m *nats.Msg) {
		w.handle(m.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to queue subscribe to subject %s: %w", w.subject, err)
	}
	w.sub = sub
	w.log.Info("worker subscribed", zap.String("subject", w.subject), zap.String("queue", w.queueGroup))
	return nil
}

// Stop lets in-flight messages finish before unsubscribing.
func (w *Worker) Stop() error {
	if w.sub == nil {
		return nil
	}
	return w.sub.Drain()
}

func (w *Worker) handle(data []byte) {
	var msg BookingConfirmation
	if err := json.Unmarshal(data, &msg); err != nil {
		w.log.Error("discarding malformed notification", zap.Error(err))
		return
	}
	if msg.Type != "" && msg.Type != TypeBookingConfirmation {
		w.log.Warn("unknown notification type", zap.String("type", msg.Type))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.sendTimeout)
	defer cancel()

	if err := Deliver(ctx, w.mailer, msg); err != nil {
		w.log.Error("failed to send booking confirmation",
			zap.Int64("booking_id", msg.BookingID),
			zap.Error(err),
		)
		return
	}
	w.log.Info("booking confirmation sent", zap.Int64("booking_id", msg.BookingID))
}
