package actor

import (
	"time"

	"github.com/arbiter-run/arbiter/path"
)

// Actor is the user-defined unit of state: a typed receive function plus
// optional lifecycle hooks (§3). Hooks are modeled as separate
// interfaces (PreStarter[M], PostStarter[M], ...) so an actor only
// implements the ones it needs - exactly the capability-set pattern the
// teacher's Initialiser/Terminator interfaces already establish for
// Actor in the original actor.go.
type Actor[M any] interface {
	Receive(ctx *Context[M], msg M, sender Reference)
}

// PreStarter runs before the actor is considered Running, for the first
// time and again after every restart (§4.2).
type PreStarter[M any] interface {
	PreStart(ctx *Context[M]) error
}

// PostStarter runs immediately after PreStart succeeds.
type PostStarter[M any] interface {
	PostStart(ctx *Context[M]) error
}

// PreRestarter runs once a supervisor has decided to restart this actor,
// before a fresh instance is constructed; it receives the failure reason
// and the user message being handled when the failure occurred, if any
// (§8 scenario 2: "pre_restart(err, Some(m1))").
type PreRestarter[M any] interface {
	PreRestart(ctx *Context[M], reason error, cause any) error
}

// PostStopper runs once, after the actor's subtree has fully terminated
// and before ChildTerminated is posted to the parent (§4.2).
type PostStopper[M any] interface {
	PostStop(ctx *Context[M]) error
}

// Props describes how to construct (and, on restart, reconstruct) an
// actor, plus its mailbox and supervision configuration (§4.4, §6).
type Props[M any] struct {
	// New builds a fresh actor instance. Called once at Start and again
	// after every Restart (§4.2 "constructs a fresh actor instance").
	New func() Actor[M]
	// MailboxCapacity overrides the system default for this cell; 0
	// inherits it.
	MailboxCapacity int
	// BlockOnFull overrides the system default overflow policy for a
	// bounded mailbox.
	BlockOnFull *bool
	// Strategy is this cell's OWN supervision strategy, applied to ITS
	// children; nil inherits the parent cell's strategy (for a child of a
	// guardian, the system default). It has nothing to do
	// with how the parent supervises this cell.
	Strategy *SupervisorStrategy
}

// rawContext is the non-generic context capability every cell's drain
// loop builds to invoke hooks/receive. It must not be retained beyond
// the call it was built for (§4.2 "must not be moved across cells").
type rawContext struct {
	self Reference
	cell *internalCell
}

func (c *rawContext) parent() Reference   { return c.cell.parentRef() }
func (c *rawContext) children() []Reference { return c.cell.childRefs() }

func (c *rawContext) watch(ref Reference)   { ref.tellSystem(sigWatch{watcher: c.self}) }
func (c *rawContext) unwatch(ref Reference) { ref.tellSystem(sigUnwatch{watcher: c.self}) }
func (c *rawContext) stop(ref Reference)    { ref.Stop() }

// Context[M] is the typed handle a Receive/hook call is given (§4.2,
// §6). A Context must never be stashed and used from a different cell or
// after the call returns; it is a thin, short-lived wrapper over
// rawContext and spawnerCell()
type Context[M any] struct {
	raw *rawContext
}

// Myself returns this cell's own typed reference.
func (c *Context[M]) Myself() Ref[M] { return Ref[M]{Reference: c.raw.self} }

// Parent returns the parent's reference, or the zero Reference for a
// guardian.
func (c *Context[M]) Parent() Reference { return c.raw.parent() }

// Children returns references to all currently live children.
func (c *Context[M]) Children() []Reference { return c.raw.children() }

// Stop posts a system Stop to ref.
func (c *Context[M]) Stop(ref Reference) { c.raw.stop(ref) }

// Watch registers this actor to receive Terminated when ref's cell
// terminates.
func (c *Context[M]) Watch(ref Reference) { c.raw.watch(ref) }

// Unwatch cancels a prior Watch; per §8 round-trip property, a
// watch-then-unwatch pair yields no Terminated delivery.
func (c *Context[M]) Unwatch(ref Reference) { c.raw.unwatch(ref) }

// System returns the capability set the enclosing ActorSystem exposes to
// cells (event stream access, scheduler, dead-letter routing).
func (c *Context[M]) System() SystemHandle { return c.raw.cell.sys }

// ScheduleOnce delegates to the system scheduler, using this actor as
// the implicit sender (§6 "On Context: ... schedule*").
func (c *Context[M]) ScheduleOnce(delay time.Duration, target Reference, msg any) CancelHandle {
	return c.raw.cell.sys.Scheduler().ScheduleOnce(delay, target, msg, c.raw.self)
}

// ScheduleAtFixedInterval delegates to the system scheduler.
func (c *Context[M]) ScheduleAtFixedInterval(initial, interval time.Duration, target Reference, msg any) CancelHandle {
	return c.raw.cell.sys.Scheduler().ScheduleAtFixedInterval(initial, interval, target, msg, c.raw.self)
}

// spawnerCell implements Spawner, letting ActorOf create a child of this
// cell.
func (c *Context[M]) spawnerCell() *internalCell { return c.raw.cell }

// Spawner is the capability ActorOf needs from its caller: either a
// Context[M] (spawning a child of the currently-executing cell) or the
// root ActorSystem (spawning a child of the user guardian), per §6.
type Spawner interface {
	spawnerCell() *internalCell
}

// ActorOf creates a new child actor under the caller's cell (§4.4). name
// must be non-empty, contain no '/', and be unique among the parent's
// live-or-tombstoned children; violations return ErrInvalidName or
// ErrDuplicateName. ActorOf posts Start into the new cell's mailbox
// before returning, satisfying invariant 3 (§8): pre_start (and
// post_start, if defined) always runs before any user envelope.
//
// ActorOf is a free function, not a Context method, because Go methods
// cannot introduce a new type parameter distinct from their receiver's.
func ActorOf[M any](parent Spawner, name string, props Props[M]) (Ref[M], error) {
	return spawnChild(parent.spawnerCell(), name, props)
}

func spawnChild[M any](parent *internalCell, name string, props Props[M]) (Ref[M], error) {
	if err := path.ValidateName(name); err != nil {
		return Ref[M]{}, ErrInvalidName
	}

	parent.mu.Lock()
	if parent.state == StateTerminating || parent.state == StateTerminated {
		parent.mu.Unlock()
		return Ref[M]{}, ErrSystemStopped
	}
	childPath := parent.path.Child(name)
	if _, exists := parent.children[name]; exists {
		parent.mu.Unlock()
		return Ref[M]{}, ErrDuplicateName
	}
	if !parent.registry.nameAvailable(childPath) {
		parent.mu.Unlock()
		return Ref[M]{}, ErrDuplicateName
	}
	uid := parent.registry.allocateUID()
	child := newInternalCell(childPath, uid, parent, props)
	parent.children[name] = child
	parent.mu.Unlock()

	parent.registry.register(childPath, uid, child)
	child.mailbox.PushSystem(systemEnvelope(sigStart{}))
	if child.mailbox.TrySetScheduled() {
		child.dispatcher.spawn(child)
	}

	return Ref[M]{Reference: Reference{p: childPath, uid: uid, rt: parent.registry}}, nil
}
