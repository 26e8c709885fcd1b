package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager holds the service's Prometheus collectors on a private registry.
// Methods on a nil *Manager do nothing.
type Manager struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
	BookingsCreated    prometheus.Counter
	BookingConflicts   prometheus.Counter
	PaymentsInitiated  prometheus.Counter
	PaymentsReconciled *prometheus.CounterVec
	GatewayErrors      *prometheus.CounterVec
	NotificationErrors prometheus.Counter
}

func New(namespace string) *Manager {
	registry := prometheus.NewRegistry()

	m := &Manager{
		Registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		BookingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Bookings persisted.",
		}),
		BookingConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_conflicts_total",
			Help:      "Booking requests rejected because the dates were taken.",
		}),
		PaymentsInitiated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_initiated_total",
			Help:      "Payments initiated with the gateway.",
		}),
		PaymentsReconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_reconciled_total",
			Help:      "Payment status changes applied from gateway verification.",
		}, []string{"status"}),
		GatewayErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_errors_total",
			Help:      "Failed payment gateway calls by operation.",
		}, []string{"operation"}),
		NotificationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_enqueue_errors_total",
			Help:      "Booking confirmations that could not be queued.",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestLatency,
		m.BookingsCreated,
		m.BookingConflicts,
		m.PaymentsInitiated,
		m.PaymentsReconciled,
		m.GatewayErrors,
		m.NotificationErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Middleware records request count and latency per matched route.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Manager) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

func (m *Manager) BookingCreated() {
	if m != nil {
		m.BookingsCreated.Inc()
	}
}

func (m *Manager) BookingConflict() {
	if m != nil {
		m.BookingConflicts.Inc()
	}
}

func (m *Manager) PaymentInitiated() {
	if m != nil {
		m.PaymentsInitiated.Inc()
	}
}

func (m *Manager) PaymentReconciled(status string) {
	if m != nil {
		m.PaymentsReconciled.WithLabelValues(status).Inc()
	}
}

func (m *Manager) GatewayError(operation string) {
	if m != nil {
		m.GatewayErrors.WithLabelValues(operation).Inc()
	}
}

func (m *Manager) NotificationFailed() {
	if m != nil {
		m.NotificationErrors.Inc()
	}
}
