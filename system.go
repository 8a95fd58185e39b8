// Package arbiter is the in-process actor runtime's public entry point:
// it bootstraps the well-known guardians (§4.10), wires the dispatcher,
// registry, scheduler, event stream and dead-letter sink together, and
// exposes the library surface enumerated in SPEC_FULL.md §6.
package arbiter

import (
	"fmt"
	"sync"

	"github.com/arbiter-run/arbiter/actor"
	"github.com/arbiter-run/arbiter/channel"
	"github.com/arbiter-run/arbiter/deadletter"
	"github.com/arbiter-run/arbiter/log"
	"github.com/arbiter-run/arbiter/path"
	"github.com/arbiter-run/arbiter/scheduler"
)

// ActorSystem is the root collaborator applications construct once and
// spawn their actor tree under. It satisfies actor.SystemHandle
// structurally, which is how cells reach back into the event stream,
// dead-letter routing and scheduler without the actor package importing
// this one (see actor/system_handle.go).
type ActorSystem struct {
	cfg Config
	log log.Logger

	registry   *actor.Registry
	dispatcher *actor.Dispatcher
	sched      *scheduler.Scheduler

	userGuardian   actor.Spawner
	systemGuardian actor.Spawner
	tempGuardian   actor.Spawner

	eventStream actor.Ref[channel.Msg]
	deadLetters actor.Ref[actor.DeadLetterEvent]
	sinkImpl    *deadletter.Sink

	mu              sync.Mutex
	guardianFailure error
	shutdownOnce    sync.Once
}

// New bootstraps an ActorSystem over exec. exec is the only required
// external collaborator (§6 "executor handle"); everything else is
// configured via Option.
func New(exec actor.Executor, opts ...Option) (*ActorSystem, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, fmt.Errorf("arbiter: applying option: %w", err)
		}
	}

	sys := &ActorSystem{cfg: cfg, log: log.OrDiscard(cfg.Logger), sched: scheduler.New()}
	sys.registry = actor.NewRegistry(sys)
	sys.dispatcher = actor.NewDispatcher(exec, cfg.Throughput)

	sys.userGuardian = actor.NewNoopGuardian(path.User, sys.registry, sys.dispatcher, sys, cfg.DefaultSupervisorStrategy, cfg.MailboxCapacity, cfg.BlockOnFull)
	sys.tempGuardian = actor.NewNoopGuardian(path.Temp, sys.registry, sys.dispatcher, sys, cfg.DefaultSupervisorStrategy, cfg.MailboxCapacity, cfg.BlockOnFull)
	sys.systemGuardian = actor.NewNoopGuardian(path.System, sys.registry, sys.dispatcher, sys, cfg.DefaultSupervisorStrategy, cfg.MailboxCapacity, cfg.BlockOnFull)

	sinkImpl := deadletter.New(cfg.Logger, cfg.DeadLetterHistoryPerPath).(*deadletter.Sink)
	sys.sinkImpl = sinkImpl
	_, dlRef := actor.NewGuardian[actor.DeadLetterEvent](path.DeadLetters, sys.registry, sys.dispatcher, sys, cfg.DefaultSupervisorStrategy, cfg.MailboxCapacity, cfg.BlockOnFull, func() actor.Actor[actor.DeadLetterEvent] { return sinkImpl })
	sys.deadLetters = dlRef

	evRef, err := actor.ActorOf(sys.systemGuardian, "eventstream", actor.Props[channel.Msg]{New: channel.New})
	if err != nil {
		return nil, fmt.Errorf("arbiter: spawn event stream: %w", err)
	}
	sys.eventStream = evRef

	return sys, nil
}

// ActorOf spawns a top-level user actor under /user (§6
// "ActorSystem::actor_of").
func ActorOf[M any](sys *ActorSystem, name string, props actor.Props[M]) (actor.Ref[M], error) {
	return actor.ActorOf(sys.userGuardian, name, props)
}

// TempActorOf spawns a child under /temp, the well-known parent for
// short-lived helper actors such as the ask-pattern's completion actor
// (§9 design notes).
func TempActorOf[M any](sys *ActorSystem, name string, props actor.Props[M]) (actor.Ref[M], error) {
	return actor.ActorOf(sys.tempGuardian, name, props)
}

// TempSpawner exposes /temp as an actor.Spawner for collaborators (such
// as the ask package) that need to spawn their own temp actors directly.
func (s *ActorSystem) TempSpawner() actor.Spawner { return s.tempGuardian }

// Select resolves an absolute path to a Reference (§6
// "ActorSystem::select").
func (s *ActorSystem) Select(p path.Path) actor.Reference {
	return s.registry.Select(p)
}

// EventStream returns the distinguished channel actor routing
// ActorStarted/ActorTerminated/ActorRestarted/DeadLetter events (§4.7
// "Typed event stream").
func (s *ActorSystem) EventStream() actor.Ref[channel.Msg] {
	return s.eventStream
}

// DeadLetters returns the dead-letter sink's reference, primarily so
// tests and operator tooling can Watch or inspect it directly.
func (s *ActorSystem) DeadLetters() actor.Ref[actor.DeadLetterEvent] {
	return s.deadLetters
}

// RecentDeadLetters returns the sink's bounded recent history for
// recipient (§11 enrichment, not part of the core spec).
func (s *ActorSystem) RecentDeadLetters(recipient path.Path) []actor.DeadLetterEvent {
	return s.sinkImpl.RecentFor(recipient.String())
}

// Scheduler returns the scheduler handle (§6 "ActorSystem::scheduler").
// It also satisfies actor.SystemHandle's Scheduler method, which is how
// Context.ScheduleOnce/ScheduleAtFixedInterval reach it from inside a
// cell.
func (s *ActorSystem) Scheduler() actor.SchedulerHandle { return s.sched }

// Shutdown posts Stop to the user guardian, waits for its entire subtree
// to reach Terminated, then does the same for the system guardian,
// finally closing the scheduler (§4.10, §5 "Shutdown is cooperative").
func (s *ActorSystem) Shutdown() {
	userRef := s.registry.Select(path.User)
	userRef.Stop()
	<-userRef.Done()

	sysRef := s.registry.Select(path.System)
	sysRef.Stop()
	<-sysRef.Done()

	tempRef := s.registry.Select(path.Temp)
	tempRef.Stop()
	<-tempRef.Done()

	dlRef := s.registry.Select(path.DeadLetters)
	dlRef.Stop()
	<-dlRef.Done()

	s.sched.Close()
}

// --- actor.SystemHandle ---

// PublishEvent tells the event stream's SubscribeAll-reachable topic.
func (s *ActorSystem) PublishEvent(evt any) {
	s.eventStream.Tell(channel.Msg{Publish: &channel.Publish{Topic: "", Msg: evt}}, actor.Reference{})
}

// DeadLetter wraps env as a DeadLetterEvent, publishes it on the event
// stream, and delivers it to the dead-letter sink cell (§4.9).
func (s *ActorSystem) DeadLetter(env actor.Envelope, recipient path.Path) {
	evt := actor.DeadLetterEvent{
		MsgTypeID:     fmt.Sprintf("%T", env.Payload),
		Sender:        env.Sender,
		RecipientPath: recipient,
	}
	s.PublishEvent(evt)
	s.deadLetters.Tell(evt, actor.Reference{})
}

// GuardianFailed satisfies actor.SystemHandle: invoked when a guardian
// (a parentless cell) itself fails, since there is no parent above it to
// escalate to. §4.5.6's terminal policy at the root is Stop of the
// entire guardian subtree, which in turn triggers system shutdown - so
// this drives a full Shutdown rather than leaving the failed guardian
// stuck Suspended forever. Shutdown runs on its own goroutine since
// GuardianFailed is called synchronously from inside the failing
// guardian's own drain task, and Shutdown blocks waiting for that same
// guardian to reach Terminated.
func (s *ActorSystem) GuardianFailed(err error) {
	s.mu.Lock()
	if s.guardianFailure == nil {
		s.guardianFailure = err
	}
	s.mu.Unlock()
	s.log.Errorf("arbiter: guardian failed with no parent to escalate to, shutting down: %v", err)
	s.shutdownOnce.Do(func() { go s.Shutdown() })
}
