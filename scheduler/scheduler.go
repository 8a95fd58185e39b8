// Package scheduler implements timed message delivery (C8, §4.8): a
// one-shot or fixed-interval timer that tells a target actor.Reference
// when it fires. It is adapted from the SeleniaProject-Orizon-style
// ActorTimer (time.AfterFunc rescheduling itself on each fire) rather
// than a ticker, so that a slow or suspended target cannot cause fires
// to pile up.
package scheduler

import (
	"sync"
	"time"

	"github.com/arbiter-run/arbiter/actor"
)

// Scheduler backs every ScheduleOnce/ScheduleAtFixedInterval call made
// through a cell's Context or the ActorSystem. It satisfies
// actor.SchedulerHandle structurally.
type Scheduler struct {
	mu      sync.Mutex
	closed  bool
	pending map[*entry]struct{}
}

// New constructs an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{pending: make(map[*entry]struct{})}
}

type entry struct {
	sched *Scheduler

	target actor.Reference
	msg    any
	sender actor.Reference

	interval  time.Duration // zero for a one-shot
	recurring bool

	mu        sync.Mutex
	cancelled bool
	timer     *time.Timer
}

// ScheduleOnce arranges for target to receive msg from sender after
// delay elapses. Satisfies actor.SchedulerHandle.
func (s *Scheduler) ScheduleOnce(delay time.Duration, target actor.Reference, msg any, sender actor.Reference) actor.CancelHandle {
	e := &entry{sched: s, target: target, msg: msg, sender: sender}
	s.arm(e, delay)
	return e
}

// ScheduleAtFixedInterval fires once after initial, then again every
// interval thereafter until cancelled. Per §4.8 this is fixed-interval:
// the next fire is scheduled interval after the previous one completes
// dispatch, not at a fixed wall-clock rate. Satisfies
// actor.SchedulerHandle.
func (s *Scheduler) ScheduleAtFixedInterval(initial, interval time.Duration, target actor.Reference, msg any, sender actor.Reference) actor.CancelHandle {
	e := &entry{sched: s, target: target, msg: msg, sender: sender, interval: interval, recurring: true}
	s.arm(e, initial)
	return e
}

func (s *Scheduler) arm(e *entry, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	e.mu.Lock()
	e.timer = time.AfterFunc(delay, e.fire)
	e.mu.Unlock()
	s.pending[e] = struct{}{}
}

// fire is the time.AfterFunc callback. A cancelled entry is a no-op; a
// dispatch already in flight when Cancel races it is allowed to land
// (§4.8: "a dispatch already handed to the target's mailbox cannot be
// revoked").
func (e *entry) fire() {
	e.mu.Lock()
	if e.cancelled {
		e.mu.Unlock()
		return
	}
	recurring := e.recurring
	interval := e.interval
	e.mu.Unlock()

	e.target.Tell(e.msg, e.sender)

	if !recurring {
		e.sched.forget(e)
		return
	}

	e.mu.Lock()
	if !e.cancelled {
		e.timer = time.AfterFunc(interval, e.fire)
	}
	e.mu.Unlock()
}

func (s *Scheduler) forget(e *entry) {
	s.mu.Lock()
	delete(s.pending, e)
	s.mu.Unlock()
}

// Cancel is idempotent; it stops the underlying timer and prevents any
// future fire. Satisfies actor.CancelHandle.
func (e *entry) Cancel() {
	e.mu.Lock()
	e.cancelled = true
	if e.timer != nil {
		e.timer.Stop()
	}
	e.mu.Unlock()
	e.sched.forget(e)
}

// Close stops every still-pending timer; used by ActorSystem.Shutdown to
// guarantee no dispatch fires after the system has torn down.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	pending := make([]*entry, 0, len(s.pending))
	for e := range s.pending {
		pending = append(pending, e)
	}
	s.mu.Unlock()

	for _, e := range pending {
		e.Cancel()
	}
}
