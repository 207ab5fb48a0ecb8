// Package tasks runs detached background work. Booking and revenue
// mutations hand their accounting hooks to the Runner after commit so the
// primary transaction never waits on the bridge or fails because of it.
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/smallbiznis/staypoint/internal/auditcontext"
	obsmetrics "github.com/smallbiznis/staypoint/internal/observability/metrics"
	"github.com/smallbiznis/staypoint/pkg/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// DefaultDrainTimeout bounds how long shutdown waits for in-flight tasks.
const DefaultDrainTimeout = 10 * time.Second

type Params struct {
	fx.In

	Log     *zap.Logger
	Metrics *obsmetrics.TaskMetrics `optional:"true"`
}

// Runner owns every detached goroutine in the process. Each task gets its
// own error boundary: failures and panics are logged and counted, never
// propagated to the code that enqueued the task.
type Runner struct {
	log     *zap.Logger
	metrics *obsmetrics.TaskMetrics
	drain   time.Duration

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

func NewRunner(p Params) *Runner {
	return &Runner{
		log:     p.Log.Named("tasks"),
		metrics: p.Metrics,
		drain:   DefaultDrainTimeout,
	}
}

// Go runs fn on its own goroutine, detached from the caller's cancellation.
// The detached context keeps the caller's values (actor, correlation id) so
// attribution survives, but outlives the request deadline. Returns false if
// the runner is already draining and the task was not started.
func (r *Runner) Go(ctx context.Context, name string, fn func(ctx context.Context) error) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.log.Warn("task rejected during shutdown", zap.String("task", name))
		return false
	}
	r.wg.Add(1)
	r.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	detached, cid := correlation.EnsureCorrelationID(detached)
	if _, ok := auditcontext.ActorFromContext(detached); !ok {
		detached = auditcontext.WithActor(detached, auditcontext.SystemActor())
	}

	go func() {
		defer r.wg.Done()
		start := time.Now()
		log := r.log.With(
			zap.String("task", name),
			zap.String("correlation_id", cid),
		)

		defer func() {
			if rec := recover(); rec != nil {
				r.metrics.ObserveTask(name, obsmetrics.TaskOutcomePanic, time.Since(start))
				log.Error("task panicked", zap.Any("panic", rec), zap.Stack("stack"))
			}
		}()

		if err := fn(detached); err != nil {
			r.metrics.ObserveTask(name, obsmetrics.TaskOutcomeFailed, time.Since(start))
			log.Warn("task failed",
				zap.String("reason", obsmetrics.ClassifyFailureReason(err)),
				zap.Error(err),
			)
			return
		}
		r.metrics.ObserveTask(name, obsmetrics.TaskOutcomeSuccess, time.Since(start))
	}()

	return true
}

// Drain stops accepting new tasks and waits for in-flight ones, bounded by
// the drain timeout. Tasks still running after the bound are abandoned; the
// bridge tolerates that because every sync is individually resumable.
func (r *Runner) Drain(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(r.drain)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		r.log.Warn("task drain timed out", zap.Duration("timeout", r.drain))
		return nil
	}
}
