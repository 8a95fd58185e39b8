package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/arbiter-run/arbiter/actor"
	"github.com/arbiter-run/arbiter/executor"
	"go.uber.org/goleak"
)

type recorder struct {
	mu  sync.Mutex
	got []any
}

func (r *recorder) Receive(ctx *actor.Context[any], msg any, sender actor.Reference) {
	r.mu.Lock()
	r.got = append(r.got, msg)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func newTarget(t *testing.T, root actor.Spawner) (actor.Reference, *recorder) {
	t.Helper()
	rec := &recorder{}
	ref, err := actor.ActorOf(root, "target", actor.Props[any]{New: func() actor.Actor[any] { return rec }})
	if err != nil {
		t.Fatalf("spawn target: %v", err)
	}
	return ref.Reference, rec
}

func TestScheduleOnceCancelledBeforeFireNeverDelivers(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := executor.New(2, nil)
	defer func() { pool.Stop(); pool.Wait() }()
	root, _ := actor.NewTestRoot(pool, actor.DefaultThroughput)
	ref, rec := newTarget(t, root)

	s := New()
	defer s.Close()

	h := s.ScheduleOnce(100*time.Millisecond, ref, "tick", actor.Reference{})
	time.Sleep(50 * time.Millisecond)
	h.Cancel()
	time.Sleep(150 * time.Millisecond)

	if got := rec.count(); got != 0 {
		t.Fatalf("expected no delivery after cancel, got %d", got)
	}
}

func TestScheduleOnceFiresExactlyOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := executor.New(2, nil)
	defer func() { pool.Stop(); pool.Wait() }()
	root, _ := actor.NewTestRoot(pool, actor.DefaultThroughput)
	ref, rec := newTarget(t, root)

	s := New()
	defer s.Close()

	s.ScheduleOnce(20*time.Millisecond, ref, "tick", actor.Reference{})

	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) && rec.count() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	if got := rec.count(); got != 1 {
		t.Fatalf("expected exactly 1 delivery, got %d", got)
	}
}

func TestScheduleAtFixedIntervalStopsAfterCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := executor.New(2, nil)
	defer func() { pool.Stop(); pool.Wait() }()
	root, _ := actor.NewTestRoot(pool, actor.DefaultThroughput)
	ref, rec := newTarget(t, root)

	s := New()
	defer s.Close()

	h := s.ScheduleAtFixedInterval(10*time.Millisecond, 10*time.Millisecond, ref, "t", actor.Reference{})
	time.Sleep(35 * time.Millisecond)
	h.Cancel()

	after := rec.count()
	if after < 2 || after > 3 {
		t.Fatalf("expected 2-3 deliveries before cancel, got %d", after)
	}

	time.Sleep(50 * time.Millisecond)
	if got := rec.count(); got != after {
		t.Fatalf("expected no further delivery after cancel, had %d now %d", after, got)
	}
}
