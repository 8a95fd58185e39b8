package actor

import (
	"github.com/arbiter-run/arbiter/path"
)

// router is the lookup/dead-letter capability a Reference carries instead
// of a direct pointer to its cell. This is what makes a Reference
// "weak-by-semantics" (§5 "Memory ownership"): holding one only grants an
// enqueue capability through the registry, never a strong pointer that
// would keep a terminated cell alive or create parent/child ownership
// cycles.
type router interface {
	lookup(p path.Path, uid uint64) (*internalCell, bool)
	deadLetter(env Envelope, recipient path.Path)
}

var closedDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Reference is the clonable, equatable actor handle of §3/§4.3
// ("ActorRef<M>" with type erased - see Ref[M] for the typed wrapper).
// The zero Reference carries no router and resolves to no cell: Tell on
// it drops the message without a dead-letter event, and TryTell returns
// ErrMailboxClosed.
type Reference struct {
	p   path.Path
	uid uint64
	rt  router
}

// Path returns the reference's address.
func (r Reference) Path() path.Path { return r.p }

// UID returns the reference's uid, disambiguating it from any past or
// future cell that might reuse its path after a tombstone clears.
func (r Reference) UID() uint64 { return r.uid }

// Equal compares two references by (path, uid), per §4.3.
func (r Reference) Equal(o Reference) bool {
	return r.uid == o.uid && r.p.Equal(o.p)
}

// IsZero reports whether r is the zero Reference (no router, never
// resolves).
func (r Reference) IsZero() bool { return r.rt == nil }

// Tell enqueues msg into the target's mailbox. If the target cannot be
// resolved, or its mailbox rejects the envelope (closed or - for a
// bounded, non-blocking mailbox - full), the envelope is routed to dead
// letters instead; Tell itself never fails (§4.3, §7).
func (r Reference) Tell(msg any, sender Reference) {
	if r.rt == nil {
		return
	}
	env := Envelope{Payload: msg, Sender: sender}
	cell, ok := r.rt.lookup(r.p, r.uid)
	if !ok {
		r.rt.deadLetter(env, r.p)
		return
	}
	if err := cell.mailbox.PushUser(env); err != nil {
		r.rt.deadLetter(env, r.p)
		return
	}
	if cell.mailbox.TrySetScheduled() {
		cell.dispatcher.spawn(cell)
	}
}

// TryTell is the non-blocking form that surfaces TellError synchronously
// instead of dead-lettering silently (§4.3, §7).
func (r Reference) TryTell(msg any, sender Reference) error {
	if r.rt == nil {
		return ErrMailboxClosed
	}
	env := Envelope{Payload: msg, Sender: sender}
	cell, ok := r.rt.lookup(r.p, r.uid)
	if !ok {
		r.rt.deadLetter(env, r.p)
		return ErrMailboxClosed
	}
	if err := cell.mailbox.PushUser(env); err != nil {
		r.rt.deadLetter(env, r.p)
		return err
	}
	if cell.mailbox.TrySetScheduled() {
		cell.dispatcher.spawn(cell)
	}
	return nil
}

// Stop is convenience for posting a system Stop (§4.3).
func (r Reference) Stop() { r.tellSystem(sigStop{}) }

// Done returns a channel closed once the referenced cell reaches
// Terminated. An unresolvable reference (already gone, or never valid)
// returns an already-closed channel, so callers never block forever on a
// target that doesn't exist. This is a system-bootstrap primitive (used
// by ActorSystem.Shutdown), not part of the ordinary actor protocol -
// application code should prefer Watch/Terminated.
func (r Reference) Done() <-chan struct{} {
	if r.rt == nil {
		return closedDone
	}
	cell, ok := r.rt.lookup(r.p, r.uid)
	if !ok {
		return closedDone
	}
	return cell.done
}

func (r Reference) tellSystem(sig systemSignal) {
	if r.rt == nil {
		return
	}
	cell, ok := r.rt.lookup(r.p, r.uid)
	if !ok {
		return
	}
	cell.mailbox.PushSystem(systemEnvelope(sig))
	if cell.mailbox.TrySetScheduled() {
		cell.dispatcher.spawn(cell)
	}
}

// Ref[M] is the typed wrapper around Reference that recovers compile-time
// message-type safety at the call site (§3 "Reference (ActorRef<M>)").
// Ref[M] is itself trivially clonable and carries no extra state beyond
// the untyped Reference.
type Ref[M any] struct {
	Reference
}

// Tell enqueues a typed message.
func (r Ref[M]) Tell(msg M, sender Reference) { r.Reference.Tell(msg, sender) }

// TryTell is the typed non-blocking form.
func (r Ref[M]) TryTell(msg M, sender Reference) error { return r.Reference.TryTell(msg, sender) }
