package actor

// Executor is the opaque asynchronous task executor capability the
// dispatcher is layered over (§6 "Executor handle"). The core depends on
// nothing about the executor beyond this method; see the executor
// package for a concrete goroutine-pool implementation grounded in the
// teacher's Supervisor/Supervisable machinery.
type Executor interface {
	Spawn(task func())
}

// BlockingExecutor is an optional capability an Executor may additionally
// satisfy, for work the caller wants to isolate from the cooperative
// pool (§6: "spawn_blocking(task) optional").
type BlockingExecutor interface {
	SpawnBlocking(task func())
}

// Dispatcher schedules cell drains onto an Executor, ensuring at most one
// drain task per cell is ever outstanding (§4.6).
type Dispatcher struct {
	exec       Executor
	throughput int
}

// DefaultThroughput is the per-dispatcher drain batch size used when a
// non-positive value is supplied (§6).
const DefaultThroughput = 10

// NewDispatcher builds a Dispatcher over exec with the given throughput
// (<=0 selects DefaultThroughput).
func NewDispatcher(exec Executor, throughput int) *Dispatcher {
	if throughput <= 0 {
		throughput = DefaultThroughput
	}
	return &Dispatcher{exec: exec, throughput: throughput}
}

// spawn submits exactly one drain task for c. Callers must already have
// won c.mailbox's scheduled CAS before calling this (TrySetScheduled
// returned true), per the enqueue→CAS-schedule-if-unset contract of
// §4.1.
func (d *Dispatcher) spawn(c *internalCell) {
	d.exec.Spawn(func() { d.drain(c) })
}

func (d *Dispatcher) drain(c *internalCell) {
	outcome := c.mailbox.TryDrain(d.throughput, c.handleSystem, c.handleUser)
	if outcome.Rearmed {
		d.spawn(c)
	}
}
