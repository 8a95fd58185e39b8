package actor

import (
	"time"

	"github.com/arbiter-run/arbiter/path"
)

// Events published on the event stream (§4.7 "Typed event stream", §7).
type (
	ActorStarted    struct{ Ref Reference }
	ActorTerminated struct{ Ref Reference }
	ActorRestarted  struct {
		Ref    Reference
		Reason error
	}
	// DeadLetterEvent is the terminal wrapper described in §4.9.
	DeadLetterEvent struct {
		MsgTypeID     string
		Sender        Reference
		RecipientPath path.Path
	}
)

// CancelHandle is returned by a schedule call; Cancel is idempotent and
// guarantees no *new* dispatches, but cannot revoke a dispatch already
// handed to the target's mailbox (§4.8).
type CancelHandle interface {
	Cancel()
}

// SchedulerHandle is the capability surface a cell (via Context) or the
// ActorSystem exposes for timed delivery (§4.8, §6).
type SchedulerHandle interface {
	ScheduleOnce(delay time.Duration, target Reference, msg any, sender Reference) CancelHandle
	ScheduleAtFixedInterval(initial, interval time.Duration, target Reference, msg any, sender Reference) CancelHandle
}

// SystemHandle is the capability set a cell's Context.System() exposes,
// and the hook internalCell uses to reach the ActorSystem without the
// actor package importing it (avoiding an import cycle: ActorSystem
// lives in the root package and necessarily imports actor). The concrete
// ActorSystem type satisfies this interface structurally.
type SystemHandle interface {
	PublishEvent(evt any)
	DeadLetter(env Envelope, recipient path.Path)
	Scheduler() SchedulerHandle
	// GuardianFailed is invoked when a guardian cell (one with no
	// parent) itself fails; per §4.5.6 the root guardian's terminal
	// policy is to stop the entire guardian subtree.
	GuardianFailed(err error)
}
