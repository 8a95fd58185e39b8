package actor

import "github.com/arbiter-run/arbiter/path"

// noopActor is the trivial Actor[any] guardians are built from: a
// guardian cell exists to own children and apply a supervision strategy
// over them, never to receive user messages itself.
type noopActor struct{}

func (noopActor) Receive(*Context[any], any, Reference) {}

// NewGuardian bootstraps a parentless cell at path p - the shape every
// ActorSystem root uses for /user, /system, /deadletters and /temp
// (§4.10). It registers the cell, posts sigStart, and arms the
// dispatcher, returning a Spawner callers use with ActorOf to spawn
// children under it, plus a Ref[M] to the guardian cell itself (most
// guardians run noopActor and are addressed only as spawn points, but
// /deadletters hosts a real Actor[DeadLetterEvent] sink).
func NewGuardian[M any](p path.Path, registry *Registry, dispatcher *Dispatcher, sys SystemHandle, strategy SupervisorStrategy, mailboxCapacity int, blockOnFull bool, newActor func() Actor[M]) (Spawner, Ref[M]) {
	cell := newGuardianCell[M](p, registry.allocateUID(), registry, dispatcher, sys, nil, strategy, mailboxCapacity, blockOnFull, newActor)
	registry.register(cell.path, cell.uid, cell)
	cell.mailbox.PushSystem(systemEnvelope(sigStart{}))
	if cell.mailbox.TrySetScheduled() {
		cell.dispatcher.spawn(cell)
	}
	return guardianSpawner{cell: cell}, Ref[M]{Reference: cell.selfRef()}
}

// NewNoopGuardian is NewGuardian specialized to the common case of a
// guardian that exists purely to own children (/user, /system, /temp),
// never receiving user messages itself.
func NewNoopGuardian(p path.Path, registry *Registry, dispatcher *Dispatcher, sys SystemHandle, strategy SupervisorStrategy, mailboxCapacity int, blockOnFull bool) Spawner {
	s, _ := NewGuardian[any](p, registry, dispatcher, sys, strategy, mailboxCapacity, blockOnFull, func() Actor[any] { return noopActor{} })
	return s
}

type guardianSpawner struct{ cell *internalCell }

func (s guardianSpawner) spawnerCell() *internalCell { return s.cell }
