package actor

import "sync"

// mbxFlag is a bitmask recording the three boolean facets of mailbox
// state the drain contract cares about (§4.1).
type mbxFlag uint32

const (
	flagScheduled mbxFlag = 1 << iota
	flagSuspended
	flagClosed
)

// Mailbox is the single-consumer, two-lane FIFO described in §4.1: a
// high-priority system lane and a user lane, guarded by a flags word
// recording {scheduled, suspended, closed}.
//
// Ownership of the scheduled flag is CAS-based: TrySetScheduled is the
// only way to flip it false→true, and only the dispatcher-owned drain
// loop (via TryDrain) flips it back. This is what lets the dispatcher
// guarantee exactly one drain task per cell at a time (invariant 1,
// §8) without a lock around the drain itself.
type Mailbox struct {
	mu    sync.Mutex
	cond  *sync.Cond
	sysQ  []Envelope
	userQ []Envelope

	capacity int // 0 = unbounded
	blocking bool

	flags atomicFlags
}

// NewMailbox constructs a mailbox. capacity <= 0 means unbounded;
// blocking controls the overflow policy for a bounded mailbox's Tell path
// (§9 Open Question): when true, PushUser waits for room instead of
// returning ErrMailboxOverflow.
func NewMailbox(capacity int, blocking bool) *Mailbox {
	m := &Mailbox{capacity: capacity, blocking: blocking}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// PushSystem enqueues a system envelope. System envelopes are never
// rejected, even once the mailbox is closed, so in-flight control
// signals (notably Stop) can always reach a terminating cell.
func (m *Mailbox) PushSystem(env Envelope) {
	m.mu.Lock()
	m.sysQ = append(m.sysQ, env)
	m.cond.Broadcast()
	m.mu.Unlock()
}

// PushUser enqueues a user envelope, honoring the closed/overflow/
// blocking policy described in §4.1 and §9.
func (m *Mailbox) PushUser(env Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		if m.flags.has(flagClosed) {
			return ErrMailboxClosed
		}
		if m.capacity <= 0 || len(m.userQ) < m.capacity {
			m.userQ = append(m.userQ, env)
			m.cond.Broadcast()
			return nil
		}
		if !m.blocking {
			return ErrMailboxOverflow
		}
		m.cond.Wait()
	}
}

// Close transitions the mailbox to reject new user envelopes; any
// blocked PushUser callers are woken to observe the closed state.
// In-flight system envelopes still drain to completion.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.flags.set(flagClosed)
	m.cond.Broadcast()
	m.mu.Unlock()
}

// Suspend retains but stops delivering user envelopes; system envelopes
// keep draining (§4.5 "Ordering guarantees").
func (m *Mailbox) Suspend() { m.flags.set(flagSuspended) }

// Resume clears suspension.
func (m *Mailbox) Resume() {
	m.flags.clear(flagSuspended)
	m.mu.Lock()
	m.cond.Broadcast()
	m.mu.Unlock()
}

func (m *Mailbox) suspended() bool { return m.flags.has(flagSuspended) }

// TrySetScheduled is the CAS a pusher or the dispatcher uses to claim the
// right to submit exactly one drain task.
func (m *Mailbox) TrySetScheduled() bool { return m.flags.trySet(flagScheduled) }

// DrainOutcome reports what a TryDrain call did.
type DrainOutcome struct {
	SystemProcessed int
	UserProcessed   int
	// Rearmed is true when TryDrain found more deliverable work after
	// clearing the scheduled flag and has already re-claimed it (via its
	// own CAS); the caller (the dispatcher) must submit exactly one more
	// drain task when this is true, and must not also CAS itself.
	Rearmed bool
}

// popSystem pops the next system envelope, if any.
func (m *Mailbox) popSystem() (Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sysQ) == 0 {
		return Envelope{}, false
	}
	env := m.sysQ[0]
	m.sysQ = m.sysQ[1:]
	m.cond.Broadcast()
	return env, true
}

// popUser pops the next user envelope, if any and if not suspended.
func (m *Mailbox) popUser() (Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.flags.has(flagSuspended) || len(m.userQ) == 0 {
		return Envelope{}, false
	}
	env := m.userQ[0]
	m.userQ = m.userQ[1:]
	m.cond.Broadcast()
	return env, true
}

// hasPending reports whether draining this mailbox again would find
// deliverable work: any system envelope, or any user envelope while not
// suspended.
func (m *Mailbox) hasPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sysQ) > 0 || (len(m.userQ) > 0 && !m.flags.has(flagSuspended))
}

// TryDrain implements the drain contract of §4.1: drain all pending
// system envelopes, interleaved with system envelopes that arrive mid
// batch (e.g. a Stop posted by the very handler running), then at most
// throughput user envelopes, then clear the scheduled flag, then -
// strictly after clearing it - observe whether work remains and, if so,
// re-claim scheduled before returning (avoiding the lost-wakeup race
// described in §4.1).
//
// TryDrain must only be called by the single task that won the
// TrySetScheduled CAS for this mailbox (enforced by the dispatcher).
func (m *Mailbox) TryDrain(throughput int, handleSystem, handleUser func(Envelope)) DrainOutcome {
	var out DrainOutcome

	drainSystem := func() {
		for {
			env, ok := m.popSystem()
			if !ok {
				return
			}
			handleSystem(env)
			out.SystemProcessed++
		}
	}

	drainSystem()
	for out.UserProcessed < throughput {
		env, ok := m.popUser()
		if !ok {
			break
		}
		handleUser(env)
		out.UserProcessed++
		// A handler may itself post system envelopes (most commonly a
		// Stop to self); drain those before continuing the user batch so
		// system envelopes are never left behind a later user envelope.
		drainSystem()
	}

	m.flags.clear(flagScheduled)
	if m.hasPending() {
		out.Rearmed = m.flags.trySet(flagScheduled)
	}
	return out
}
