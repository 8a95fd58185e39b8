package actor

import (
	"fmt"
	"sync"

	"github.com/arbiter-run/arbiter/log"
	"github.com/arbiter-run/arbiter/path"
	"github.com/sony/gobreaker"
)

// State is a cell's lifecycle state (§3, §4.2).
type State int32

const (
	StateCreating State = iota
	StateStarting
	StateRunning
	StateSuspended
	StateRestarting
	StateTerminating
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateCreating:
		return "Creating"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateSuspended:
		return "Suspended"
	case StateRestarting:
		return "Restarting"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// untypedActor is the boxed capability set every cell drives, regardless
// of the actor's message type (§9 "dynamic dispatch over the actor
// type"). typedAdapter[M] is the only implementation, bridging to a
// user's Actor[M].
type untypedActor interface {
	receive(ctx *rawContext, msg any, sender Reference)
	preStart(ctx *rawContext) error
	postStart(ctx *rawContext) error
	preRestart(ctx *rawContext, reason error, cause any) error
	postStop(ctx *rawContext) error
	strategyFor(err error) Decision
}

type typedAdapter[M any] struct {
	impl Actor[M]
}

func (a *typedAdapter[M]) receive(ctx *rawContext, msg any, sender Reference) {
	typed, _ := msg.(M)
	a.impl.Receive(&Context[M]{raw: ctx}, typed, sender)
}

func (a *typedAdapter[M]) preStart(ctx *rawContext) error {
	if h, ok := a.impl.(PreStarter[M]); ok {
		return h.PreStart(&Context[M]{raw: ctx})
	}
	return nil
}

func (a *typedAdapter[M]) postStart(ctx *rawContext) error {
	if h, ok := a.impl.(PostStarter[M]); ok {
		return h.PostStart(&Context[M]{raw: ctx})
	}
	return nil
}

func (a *typedAdapter[M]) preRestart(ctx *rawContext, reason error, cause any) error {
	if h, ok := a.impl.(PreRestarter[M]); ok {
		return h.PreRestart(&Context[M]{raw: ctx}, reason, cause)
	}
	return nil
}

func (a *typedAdapter[M]) postStop(ctx *rawContext) error {
	if h, ok := a.impl.(PostStopper[M]); ok {
		return h.PostStop(&Context[M]{raw: ctx})
	}
	return nil
}

func (a *typedAdapter[M]) strategyFor(err error) Decision {
	if s, ok := a.impl.(StrategySelector); ok {
		return s.SupervisorStrategy(err)
	}
	return noOverride
}

// pendingRestart records a restart decision awaiting its target's
// descendants to finish stopping (§4.5.4).
type pendingRestart struct {
	reason error
	cause  any
}

// internalCell is the untyped runtime representation of a Cell (C2): it
// owns the mailbox, the boxed actor instance, the lifecycle state
// machine, and strong references to its children (§3, §5 "Memory
// ownership").
type internalCell struct {
	path       path.Path
	uid        uint64
	parent     *internalCell
	registry   *Registry
	dispatcher *Dispatcher
	sys        SystemHandle
	log        log.Logger

	mailbox  *Mailbox
	strategy SupervisorStrategy // THIS cell's strategy over ITS children

	// defaultCap/defaultBlocking are the ambient mailbox defaults new
	// children inherit when their Props leaves MailboxCapacity/
	// BlockOnFull unset; they propagate from the guardian (set from
	// system Config) down through every spawnChild call.
	defaultCap      int
	defaultBlocking bool

	mu              sync.Mutex
	state           State
	children        map[string]*internalCell
	watchers        map[string]Reference
	actor           untypedActor
	factory         func() untypedActor
	lastErr         error
	lastMsg         any
	restartPending  *pendingRestart
	restartBreakers map[string]*gobreaker.CircuitBreaker[any]

	// done is closed exactly once, in finishTerminate, letting a caller
	// outside the actor protocol (ActorSystem.Shutdown) wait for a
	// guardian's whole subtree without itself being a cell.
	done chan struct{}
}

func newInternalCell[M any](p path.Path, uid uint64, parent *internalCell, props Props[M]) *internalCell {
	strat := parent.strategy
	if props.Strategy != nil {
		strat = *props.Strategy
	}
	cap := parent.defaultCap
	if props.MailboxCapacity != 0 {
		cap = props.MailboxCapacity
	}
	blocking := parent.defaultBlocking
	if props.BlockOnFull != nil {
		blocking = *props.BlockOnFull
	}

	return &internalCell{
		path:            p,
		uid:             uid,
		parent:          parent,
		registry:        parent.registry,
		dispatcher:      parent.dispatcher,
		sys:             parent.sys,
		log:             parent.log,
		mailbox:         NewMailbox(cap, blocking),
		strategy:        strat,
		defaultCap:      parent.defaultCap,
		defaultBlocking: parent.defaultBlocking,
		state:           StateCreating,
		children:        make(map[string]*internalCell),
		watchers:        make(map[string]Reference),
		factory:         func() untypedActor { return &typedAdapter[M]{impl: props.New()} },
		done:            make(chan struct{}),
	}
}

// newGuardianCell builds a cell with no parent (a guardian); used only by
// NewGuardian, which bootstraps every parentless root (/user, /system,
// /temp, /deadletters, and the test harness's /test).
func newGuardianCell[M any](p path.Path, uid uint64, registry *Registry, dispatcher *Dispatcher, sys SystemHandle, lg log.Logger, strategy SupervisorStrategy, mailboxCapacity int, blockOnFull bool, newActor func() Actor[M]) *internalCell {
	return &internalCell{
		path:            p,
		uid:             uid,
		parent:          nil,
		registry:        registry,
		dispatcher:      dispatcher,
		sys:             sys,
		log:             log.OrDiscard(lg),
		mailbox:         NewMailbox(mailboxCapacity, blockOnFull),
		strategy:        strategy,
		defaultCap:      mailboxCapacity,
		defaultBlocking: blockOnFull,
		state:           StateCreating,
		children:        make(map[string]*internalCell),
		watchers:        make(map[string]Reference),
		factory:         func() untypedActor { return &typedAdapter[M]{impl: newActor()} },
		done:            make(chan struct{}),
	}
}

func (c *internalCell) selfRef() Reference { return Reference{p: c.path, uid: c.uid, rt: c.registry} }

func (c *internalCell) parentRef() Reference {
	if c.parent == nil {
		return Reference{}
	}
	return c.parent.selfRef()
}

func (c *internalCell) childRefs() []Reference {
	c.mu.Lock()
	defer c.mu.Unlock()
	refs := make([]Reference, 0, len(c.children))
	for _, ch := range c.children {
		refs = append(refs, ch.selfRef())
	}
	return refs
}

func asError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}

// recoverGuard should be deferred around any call into user code
// (hooks or receive). onErr is invoked with a non-nil error if a panic
// was recovered.
func recoverGuard(onErr func(error)) {
	if r := recover(); r != nil {
		onErr(asError(r))
	}
}

// --- system envelope dispatch (§4.2 transitions) ---

func (c *internalCell) handleSystem(env Envelope) {
	switch sig := env.Payload.(type) {
	case sigStart:
		c.onStart()
	case sigStop:
		c.beginStop()
	case sigResume:
		c.resume()
	case sigRestart:
		c.beginRestart(sig.reason)
	case sigChildTerminated:
		c.onChildTerminated(sig.child)
	case sigFailed:
		c.onChildFailed(sig.child, sig.err)
	case sigWatch:
		c.mu.Lock()
		c.watchers[sig.watcher.p.String()+"#"+u64str(sig.watcher.uid)] = sig.watcher
		c.mu.Unlock()
	case sigUnwatch:
		c.mu.Lock()
		delete(c.watchers, sig.watcher.p.String()+"#"+u64str(sig.watcher.uid))
		c.mu.Unlock()
	case sigIdentify:
		if !env.Sender.IsZero() {
			env.Sender.Tell(identifyReply{Ref: c.selfRef()}, c.selfRef())
		}
	}
}

func u64str(v uint64) string {
	return fmt.Sprintf("%d", v)
}

// handleUser drives exactly one Receive call (§4.2 "exactly one user
// message is in flight per cell at any time" - guaranteed by the
// dispatcher's single-drain-task invariant plus the mailbox suspending
// the user lane whenever this cell isn't Running).
func (c *internalCell) handleUser(env Envelope) {
	c.mu.Lock()
	st := c.state
	actorInst := c.actor
	c.mu.Unlock()
	if st != StateRunning || actorInst == nil {
		c.deadLetter(env)
		return
	}

	rawCtx := &rawContext{self: c.selfRef(), cell: c}
	defer recoverGuard(func(err error) { c.fail(err, env.Payload) })
	actorInst.receive(rawCtx, env.Payload, env.Sender)
}

func (c *internalCell) deadLetter(env Envelope) {
	if c.sys != nil {
		c.sys.DeadLetter(env, c.path)
	}
}

// --- lifecycle transitions ---

func (c *internalCell) onStart() {
	c.mu.Lock()
	c.state = StateStarting
	if c.actor == nil {
		c.actor = c.factory()
	}
	actorInst := c.actor
	c.mu.Unlock()

	rawCtx := &rawContext{self: c.selfRef(), cell: c}
	var failed error
	func() {
		defer recoverGuard(func(err error) { failed = err })
		if err := actorInst.preStart(rawCtx); err != nil {
			failed = err
			return
		}
		if err := actorInst.postStart(rawCtx); err != nil {
			failed = err
			return
		}
	}()
	if failed != nil {
		c.fail(failed, nil)
		return
	}

	c.mu.Lock()
	c.state = StateRunning
	c.mu.Unlock()
	if c.sys != nil {
		c.sys.PublishEvent(ActorStarted{Ref: c.selfRef()})
	}
}

// resume is a no-op unless the cell is currently Suspended (§8 round-trip
// property).
func (c *internalCell) resume() {
	c.mu.Lock()
	if c.state != StateSuspended {
		c.mu.Unlock()
		return
	}
	c.state = StateRunning
	c.mu.Unlock()
	c.mailbox.Resume()
	c.rearmIfPending()
}

// rearmIfPending re-claims the scheduled CAS and submits a drain task if
// Resume (or a completed restart) left deliverable work behind. Resume
// only flips flagSuspended and wakes blocked pushers - it was already
// cleared of the scheduled flag by the TryDrain call that suspended the
// cell in the first place (that same call found hasPending()==false,
// since a suspended mailbox ignores its user queue), so nothing else
// will ever re-arm delivery of a message that queued during suspension
// unless this does it explicitly.
func (c *internalCell) rearmIfPending() {
	if !c.mailbox.hasPending() {
		return
	}
	if c.mailbox.TrySetScheduled() {
		c.dispatcher.spawn(c)
	}
}

// fail is the single path by which a cell's own failure (init or
// handler) reaches its parent as Failed, or - for a guardian - reaches
// the system's terminal escalation policy (§4.5.1, §4.5.6).
func (c *internalCell) fail(err error, cause any) {
	c.mu.Lock()
	if c.state == StateTerminating || c.state == StateTerminated {
		c.mu.Unlock()
		return
	}
	c.state = StateSuspended
	c.lastErr = err
	c.lastMsg = cause
	parent := c.parent
	c.mu.Unlock()
	c.mailbox.Suspend()

	selfRef := c.selfRef()
	if parent != nil {
		parent.mailbox.PushSystem(systemEnvelope(sigFailed{child: selfRef, err: err}))
		if parent.mailbox.TrySetScheduled() {
			parent.dispatcher.spawn(parent)
		}
		return
	}
	if c.sys != nil {
		c.sys.GuardianFailed(err)
	}
}

// onChildFailed is where a parent applies its SupervisorStrategy
// (§4.5.1-6).
func (c *internalCell) onChildFailed(childRef Reference, err error) {
	childName := childRef.p.Name()
	c.mu.Lock()
	childCell := c.children[childName]
	c.mu.Unlock()
	if childCell == nil {
		return // child already gone; nothing to supervise
	}

	// Restart intensity is accounted per failing child under OneForOne and
	// per sibling group under AllForOne (see SupervisorStrategy).
	breakerKey := childRef.p.String()
	if c.strategy.Scope == AllForOne {
		breakerKey = c.path.String() + "/*"
	}
	decision := c.decide(breakerKey, childCell, err)

	var targets []*internalCell
	c.mu.Lock()
	if c.strategy.Scope == AllForOne {
		for _, ch := range c.children {
			targets = append(targets, ch)
		}
	} else {
		targets = []*internalCell{childCell}
	}
	c.mu.Unlock()

	switch decision {
	case Resume:
		for _, t := range targets {
			t.resume()
		}
	case Restart:
		for _, t := range targets {
			t.beginRestart(err)
		}
	case Stop:
		for _, t := range targets {
			t.beginStop()
		}
	case Escalate:
		c.fail(err, nil)
	}
}

// beginRestart stops all of the target's own children first (§4.5.4),
// then restarts once the last one acknowledges termination (see
// onChildTerminated).
func (c *internalCell) beginRestart(reason error) {
	c.mu.Lock()
	if c.state == StateTerminating || c.state == StateTerminated {
		c.mu.Unlock()
		return
	}
	c.restartPending = &pendingRestart{reason: reason, cause: c.lastMsg}
	c.state = StateSuspended
	kids := make([]*internalCell, 0, len(c.children))
	for _, k := range c.children {
		kids = append(kids, k)
	}
	c.mu.Unlock()
	c.mailbox.Suspend()

	if len(kids) == 0 {
		c.doRestart()
		return
	}
	for _, k := range kids {
		k.beginStop()
	}
}

func (c *internalCell) doRestart() {
	c.mu.Lock()
	pending := c.restartPending
	c.restartPending = nil
	c.state = StateRestarting
	actorInst := c.actor
	c.mu.Unlock()
	if pending == nil {
		pending = &pendingRestart{}
	}

	rawCtx := &rawContext{self: c.selfRef(), cell: c}
	if actorInst != nil {
		func() {
			defer recoverGuard(func(err error) { c.fail(err, nil) })
			_ = actorInst.preRestart(rawCtx, pending.reason, pending.cause)
		}()
	}

	c.mu.Lock()
	c.actor = c.factory()
	c.mu.Unlock()
	// User envelopes that queued while the cell was Suspended are not
	// replayed into the fresh instance; they go to dead letters (§4.5
	// "Ordering guarantees").
	c.mailbox.mu.Lock()
	dropped := c.mailbox.userQ
	c.mailbox.userQ = nil
	c.mailbox.cond.Broadcast()
	c.mailbox.mu.Unlock()
	for _, env := range dropped {
		c.deadLetter(env)
	}
	c.mailbox.Resume()
	if c.sys != nil {
		c.sys.PublishEvent(ActorRestarted{Ref: c.selfRef(), Reason: pending.reason})
	}
	c.onStart()
	c.rearmIfPending()
}

// beginStop drives the Terminating cascade (§4.2 "Terminating →
// Terminated").
func (c *internalCell) beginStop() {
	c.mu.Lock()
	if c.state == StateTerminating || c.state == StateTerminated {
		c.mu.Unlock()
		return
	}
	c.state = StateTerminating
	kids := make([]*internalCell, 0, len(c.children))
	for _, k := range c.children {
		kids = append(kids, k)
	}
	c.mu.Unlock()
	c.mailbox.Close()

	if len(kids) == 0 {
		c.finishTerminate()
		return
	}
	for _, k := range kids {
		k.beginStop()
	}
}

// onChildTerminated is delivered to a parent when a child reaches
// Terminated (§3, §4.4). It clears the child from this cell's strong
// ownership set and releases the registry tombstone, then continues
// whatever this cell itself was waiting on (a pending restart, or its
// own termination).
func (c *internalCell) onChildTerminated(childRef Reference) {
	name := childRef.p.Name()
	c.mu.Lock()
	delete(c.children, name)
	noChildrenLeft := len(c.children) == 0
	restarting := c.restartPending != nil
	terminating := c.state == StateTerminating
	c.mu.Unlock()
	c.registry.clearTombstone(childRef.p)

	if restarting && noChildrenLeft {
		c.doRestart()
		return
	}
	if terminating && noChildrenLeft {
		c.finishTerminate()
	}
}

func (c *internalCell) finishTerminate() {
	c.mu.Lock()
	if c.state == StateTerminated {
		c.mu.Unlock()
		return
	}
	actorInst := c.actor
	parent := c.parent
	watchers := make([]Reference, 0, len(c.watchers))
	for _, w := range c.watchers {
		watchers = append(watchers, w)
	}
	c.state = StateTerminated
	c.mu.Unlock()

	selfRef := c.selfRef()
	if actorInst != nil {
		rawCtx := &rawContext{self: selfRef, cell: c}
		func() {
			defer recoverGuard(func(error) {})
			_ = actorInst.postStop(rawCtx)
		}()
	}
	c.mailbox.Close()
	c.registry.markTombstoned(c.path, c.uid)

	for _, w := range watchers {
		w.Tell(Terminated{Ref: selfRef}, selfRef)
	}
	if c.sys != nil {
		c.sys.PublishEvent(ActorTerminated{Ref: selfRef})
	}

	if parent != nil {
		parent.mailbox.PushSystem(systemEnvelope(sigChildTerminated{child: selfRef}))
		if parent.mailbox.TrySetScheduled() {
			parent.dispatcher.spawn(parent)
		}
	}
	// A guardian has no parent to notify; ActorSystem.Shutdown instead
	// waits on Reference.Done(), backed by c.done.
	close(c.done)
}
