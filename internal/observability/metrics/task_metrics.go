package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	TaskOutcomeSuccess = "success"
	TaskOutcomeFailed  = "failed"
	TaskOutcomePanic   = "panic"
)

const (
	FailureReasonDeadlineExceeded     = "deadline_exceeded"
	FailureReasonDBLockTimeout        = "db_lock_timeout"
	FailureReasonSerializationFailure = "serialization_failure"
	FailureReasonUniqueViolation      = "unique_violation"
	FailureReasonNotFound             = "not_found"
	FailureReasonUnknown              = "unknown"
)

// TaskMetrics instruments detached background work on the local /metrics
// endpoint. Cloud-side sync health goes through internal/cloudmetrics.
type TaskMetrics struct {
	tasksTotal   *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	syncTotal    *prometheus.CounterVec
}

func NewTaskMetrics() (*TaskMetrics, error) {
	m := &TaskMetrics{
		tasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staypoint_tasks_total",
			Help: "Detached task executions by name and outcome.",
		}, []string{"name", "outcome"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "staypoint_task_duration_seconds",
			Help:    "Detached task wall time by name.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"name"}),
		syncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staypoint_accounting_sync_total",
			Help: "Accounting bridge outcomes by entity type.",
		}, []string{"entity_type", "outcome"}),
	}

	for _, c := range []prometheus.Collector{m.tasksTotal, m.taskDuration, m.syncTotal} {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, err
		}
	}

	return m, nil
}

// ObserveTask records a finished detached task.
func (m *TaskMetrics) ObserveTask(name, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.tasksTotal.WithLabelValues(name, outcome).Inc()
	m.taskDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// ObserveSync records an accounting bridge outcome.
func (m *TaskMetrics) ObserveSync(entityType, outcome string) {
	if m == nil {
		return
	}
	m.syncTotal.WithLabelValues(entityType, outcome).Inc()
}

// ClassifyFailureReason maps task errors onto the small label set used in
// dashboards. Postgres error codes come first; sqlite/mysql fall through to
// string-free buckets.
func ClassifyFailureReason(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureReasonDeadlineExceeded
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return FailureReasonNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return FailureReasonDBLockTimeout
		case "40001":
			return FailureReasonSerializationFailure
		case "23505":
			return FailureReasonUniqueViolation
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return FailureReasonUniqueViolation
	}

	return FailureReasonUnknown
}
