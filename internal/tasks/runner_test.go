package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/staypoint/internal/auditcontext"
	"github.com/smallbiznis/staypoint/pkg/correlation"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestRunner() *Runner {
	return NewRunner(Params{Log: zap.NewNop()})
}

func TestGoDetachesFromCallerCancellation(t *testing.T) {
	r := newTestRunner()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := make(chan error, 1)
	ok := r.Go(ctx, "probe", func(taskCtx context.Context) error {
		got <- taskCtx.Err()
		return nil
	})
	if !ok {
		t.Fatalf("Go returned false on a live runner")
	}

	select {
	case err := <-got:
		assert.NoError(t, err, "detached context must outlive the caller's cancellation")
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestGoKeepsActorAndCorrelation(t *testing.T) {
	r := newTestRunner()

	ctx := auditcontext.WithActor(context.Background(), auditcontext.Actor{
		Type: auditcontext.ActorTypeUser,
		ID:   "42",
		Role: "MANAGER",
	})
	ctx = correlation.ContextWithCorrelationID(ctx, "01TESTCID")

	type captured struct {
		actor auditcontext.Actor
		ok    bool
		cid   string
	}
	got := make(chan captured, 1)
	r.Go(ctx, "probe", func(taskCtx context.Context) error {
		actor, ok := auditcontext.ActorFromContext(taskCtx)
		got <- captured{actor: actor, ok: ok, cid: correlation.ExtractCorrelationID(taskCtx)}
		return nil
	})

	select {
	case c := <-got:
		if !c.ok {
			t.Fatal("actor lost across detachment")
		}
		assert.Equal(t, "42", c.actor.ID)
		assert.Equal(t, "01TESTCID", c.cid)
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestGoDefaultsToSystemActor(t *testing.T) {
	r := newTestRunner()

	got := make(chan auditcontext.Actor, 1)
	r.Go(context.Background(), "probe", func(taskCtx context.Context) error {
		actor, _ := auditcontext.ActorFromContext(taskCtx)
		got <- actor
		return nil
	})

	select {
	case actor := <-got:
		assert.Equal(t, auditcontext.ActorTypeSystem, actor.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestGoRecoversPanics(t *testing.T) {
	r := newTestRunner()

	panicked := make(chan struct{})
	r.Go(context.Background(), "boom", func(context.Context) error {
		close(panicked)
		panic("kaboom")
	})

	select {
	case <-panicked:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}

	// The runner must survive a panic and keep accepting work.
	ran := make(chan struct{})
	r.Go(context.Background(), "after", func(context.Context) error {
		close(ran)
		return nil
	})
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("runner stopped accepting tasks after a panic")
	}
}

func TestGoSwallowsTaskErrors(t *testing.T) {
	r := newTestRunner()

	done := make(chan struct{})
	r.Go(context.Background(), "failing", func(context.Context) error {
		defer close(done)
		return errors.New("bridge unavailable")
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestDrainWaitsForInflightAndRejectsNew(t *testing.T) {
	r := newTestRunner()

	release := make(chan struct{})
	started := make(chan struct{})
	finished := make(chan struct{})
	r.Go(context.Background(), "slow", func(context.Context) error {
		close(started)
		<-release
		close(finished)
		return nil
	})
	<-started

	drained := make(chan error, 1)
	go func() { drained <- r.Drain(context.Background()) }()

	// Draining runners reject new work immediately.
	assert.Eventually(t, func() bool {
		return !r.Go(context.Background(), "late", func(context.Context) error { return nil })
	}, 2*time.Second, 10*time.Millisecond)

	close(release)

	select {
	case err := <-drained:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("drain never returned")
	}

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("drain returned before the in-flight task finished")
	}
}
