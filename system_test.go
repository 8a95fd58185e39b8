package arbiter

import (
	"sync"
	"testing"
	"time"

	"github.com/arbiter-run/arbiter/actor"
	"github.com/arbiter-run/arbiter/executor"
	"github.com/arbiter-run/arbiter/path"
	"go.uber.org/goleak"
)

type echoActor struct{}

func (echoActor) Receive(ctx *actor.Context[uint32], msg uint32, sender actor.Reference) {
	sender.Tell(msg*2, ctx.Myself().Reference)
}

type probe struct {
	mu       sync.Mutex
	received uint32
	from     actor.Reference
	got      bool
}

func (p *probe) Receive(ctx *actor.Context[any], msg any, sender actor.Reference) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := msg.(uint32); ok {
		p.received = v
		p.from = sender
		p.got = true
	}
}

func (p *probe) snapshot() (uint32, actor.Reference, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.received, p.from, p.got
}

func TestEchoScenario(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := executor.New(4, nil)
	sys, err := New(pool)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { sys.Shutdown(); pool.Stop(); pool.Wait() }()

	echo, err := ActorOf(sys, "E", actor.Props[uint32]{New: func() actor.Actor[uint32] { return echoActor{} }})
	if err != nil {
		t.Fatalf("spawn E: %v", err)
	}

	p := &probe{}
	pRef, err := ActorOf(sys, "P", actor.Props[any]{New: func() actor.Actor[any] { return p }})
	if err != nil {
		t.Fatalf("spawn P: %v", err)
	}

	echo.Tell(21, pRef.Reference)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, _, ok := p.snapshot(); ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	got, from, ok := p.snapshot()
	if !ok {
		t.Fatal("P never received a reply")
	}
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
	if !from.Equal(echo.Reference) {
		t.Fatalf("sender = %v, want E", from.Path())
	}
}

// restartProbe is shared across every fresh *panicOnceActor instance a
// restart constructs, so the test can observe lifecycle counts across
// instances while each instance itself stays genuinely fresh per §4.2.
type restartProbe struct {
	mu       sync.Mutex
	started  int
	restarts int
	handled  []uint32
}

func (p *restartProbe) snapshot() (int, int, []uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started, p.restarts, append([]uint32(nil), p.handled...)
}

type panicOnceActor struct {
	probe *restartProbe
}

func (a *panicOnceActor) PreStart(ctx *actor.Context[uint32]) error {
	a.probe.mu.Lock()
	a.probe.started++
	a.probe.mu.Unlock()
	return nil
}

func (a *panicOnceActor) PreRestart(ctx *actor.Context[uint32], reason error, cause any) error {
	a.probe.mu.Lock()
	a.probe.restarts++
	a.probe.mu.Unlock()
	return nil
}

func (a *panicOnceActor) Receive(ctx *actor.Context[uint32], msg uint32, sender actor.Reference) {
	a.probe.mu.Lock()
	a.probe.handled = append(a.probe.handled, msg)
	first := len(a.probe.handled) == 1
	a.probe.mu.Unlock()
	if first {
		panic("boom on first message")
	}
}

func TestRestartOnPanicScenario(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := executor.New(4, nil)
	sys, err := New(pool)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { sys.Shutdown(); pool.Stop(); pool.Wait() }()

	probe := &restartProbe{}
	ref, err := ActorOf(sys, "F", actor.Props[uint32]{New: func() actor.Actor[uint32] { return &panicOnceActor{probe: probe} }})
	if err != nil {
		t.Fatalf("spawn F: %v", err)
	}

	ref.Tell(1, actor.Reference{})
	time.Sleep(50 * time.Millisecond)
	ref.Tell(2, actor.Reference{})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		_, _, handled := probe.snapshot()
		if len(handled) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	started, restarts, handled := probe.snapshot()
	if started < 2 {
		t.Fatalf("expected at least 2 PreStart calls (initial + restart), got %d", started)
	}
	if restarts != 1 {
		t.Fatalf("expected exactly 1 PreRestart, got %d", restarts)
	}
	if len(handled) != 2 || handled[0] != 1 || handled[1] != 2 {
		t.Fatalf("handled = %v, want [1 2] (m1 not replayed)", handled)
	}
}

// alwaysPanicActor panics on every message, so its supervisor burns
// through its restart-intensity budget in a fixed number of failures.
type alwaysPanicActor struct{}

func (alwaysPanicActor) Receive(ctx *actor.Context[uint32], msg uint32, sender actor.Reference) {
	panic("boom")
}

// TestGuardianEscalationTriggersShutdown covers §4.5.6: once a child of
// a guardian exhausts its restart intensity, the decision escalates to
// the guardian itself; since a guardian has no parent to escalate
// further to, that must drive the whole ActorSystem's shutdown rather
// than leaving the guardian stuck Suspended forever.
func TestGuardianEscalationTriggersShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := executor.New(4, nil)
	sys, err := New(pool, WithRestartIntensity(2, time.Minute))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { pool.Stop(); pool.Wait() }()

	ref, err := ActorOf(sys, "F", actor.Props[uint32]{New: func() actor.Actor[uint32] { return alwaysPanicActor{} }})
	if err != nil {
		t.Fatalf("spawn F: %v", err)
	}

	// Intensity is 2: the first two failures restart F, the third
	// exceeds the budget and escalates to /user, which has no parent and
	// so reports GuardianFailed and triggers Shutdown.
	for i := 0; i < 3; i++ {
		ref.Tell(uint32(i), actor.Reference{})
		time.Sleep(20 * time.Millisecond)
	}

	userRef := sys.Select(path.User)
	select {
	case <-userRef.Done():
	case <-time.After(time.Second):
		t.Fatal("expected /user to be stopped after guardian escalation")
	}

	sys.mu.Lock()
	failure := sys.guardianFailure
	sys.mu.Unlock()
	if failure == nil {
		t.Fatal("expected guardianFailure to be recorded")
	}
}

func TestDeadLetterScenario(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := executor.New(2, nil)
	sys, err := New(pool)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { sys.Shutdown(); pool.Stop(); pool.Wait() }()

	ref, err := ActorOf(sys, "X", actor.Props[any]{New: func() actor.Actor[any] { return &probe{} }})
	if err != nil {
		t.Fatalf("spawn X: %v", err)
	}

	ref.Stop()
	<-ref.Done()

	ref.Tell("too late", actor.Reference{})

	want := path.MustParse("/user/X")
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		recent := sys.RecentDeadLetters(want)
		if len(recent) == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected exactly one dead letter for %s", want)
}
