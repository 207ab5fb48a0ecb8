package cloudmetrics

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// CloudMetrics aggregates the handful of series a hosted account reports back
// to the control plane: booking activity, accounting bridge outcomes, and
// coarse install health. It keeps its own registry so local /metrics traffic
// never leaks upstream.
type CloudMetrics struct {
	registry *prometheus.Registry
	pusher   Pusher
	logger   *zap.Logger

	info            *prometheus.GaugeVec
	memoryBytes     prometheus.Gauge
	businessesTotal prometheus.Gauge
	bookingsTotal   *prometheus.CounterVec
	accountingSyncs *prometheus.CounterVec
}

func New(registry *prometheus.Registry, pusher Pusher, version string, logger *zap.Logger) *CloudMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &CloudMetrics{
		registry: registry,
		pusher:   pusher,
		logger:   logger,
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "staypoint_cloud_info",
			Help: "Static install info, value is always 1.",
		}, []string{"version"}),
		memoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "staypoint_cloud_memory_bytes",
			Help: "Process memory obtained from the OS.",
		}),
		businessesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "staypoint_cloud_businesses",
			Help: "Businesses registered on this install.",
		}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staypoint_cloud_bookings_total",
			Help: "Bookings created since process start.",
		}, []string{"business_id"}),
		accountingSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staypoint_cloud_accounting_syncs_total",
			Help: "Accounting bridge attempts by entity type and outcome.",
		}, []string{"business_id", "entity_type", "outcome"}),
	}

	registry.MustRegister(c.info, c.memoryBytes, c.businessesTotal, c.bookingsTotal, c.accountingSyncs)
	c.info.WithLabelValues(normalizeLabel(version)).Set(1)
	return c
}

// IncBookingCreated records a new booking for uplink reporting.
func (c *CloudMetrics) IncBookingCreated(businessID string) {
	if c == nil {
		return
	}
	c.bookingsTotal.WithLabelValues(normalizeLabel(businessID)).Inc()
}

// IncAccountingSync records an accounting bridge attempt.
func (c *CloudMetrics) IncAccountingSync(businessID, entityType, outcome string) {
	if c == nil {
		return
	}
	c.accountingSyncs.WithLabelValues(
		normalizeLabel(businessID),
		normalizeLabel(entityType),
		normalizeLabel(outcome),
	).Inc()
}

// SetBusinessesTotal updates the registered-business gauge.
func (c *CloudMetrics) SetBusinessesTotal(count int64) {
	if c == nil {
		return
	}
	if count < 0 {
		count = 0
	}
	c.businessesTotal.Set(float64(count))
}

// SetMemoryUsage updates the process memory gauge.
func (c *CloudMetrics) SetMemoryUsage(bytes uint64) {
	if c == nil {
		return
	}
	c.memoryBytes.Set(float64(bytes))
}

// Push sends the current snapshot upstream. A nil pusher means the install is
// not connected to the control plane; that is not an error.
func (c *CloudMetrics) Push(ctx context.Context) error {
	if c == nil || c.pusher == nil {
		return nil
	}
	return c.pusher.Push(ctx, c.registry)
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
