// Package executor is a concrete, minimal implementation of the opaque
// executor handle required by actor.Dispatcher (§6). It is adapted
// directly from the teacher repo's Supervisor/Supervisable machinery
// (supervisor/supervisor.go): where the teacher restarts a long-lived
// Supervisable goroutine forever on a fixed worker count, a Pool here
// restarts the *worker loop itself* forever across a bounded number of
// goroutines, handing each one task closures to run - the same
// "recover, report done, run again unless the context is cancelled"
// shape, repurposed from supervising whole functions to supervising a
// generic task queue.
package executor

import (
	"context"
	"sync"

	"github.com/arbiter-run/arbiter/log"
)

// Pool is a bounded goroutine pool satisfying actor.Executor (and
// optionally actor.BlockingExecutor). It is the reference collaborator
// for ActorSystem.New's executor handle; arbiter's core never imports
// this package - callers wire it in explicitly, the same way the
// teacher's examples/ wire a Supervisor around user-supplied
// Supervisables.
type Pool struct {
	ctx    context.Context
	cancel context.CancelFunc
	tasks  chan func()
	wg     sync.WaitGroup
	log    log.Logger
}

// New starts a Pool with the given number of worker goroutines and an
// unbuffered task channel. size <= 0 selects a single worker.
func New(size int, logger log.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(chan func()),
		log:    log.OrDiscard(logger),
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.runWorker()
	}
	return p
}

// runWorker is the teacher's runLoop, generalized: instead of
// re-invoking the same Supervisable forever, it pulls the next task off
// the shared channel and recovers around running it, looping until the
// pool's context is cancelled.
func (p *Pool) runWorker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.runTask(task)
		}
	}
}

func (p *Pool) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("executor: recovered panic in task: %v", r)
		}
	}()
	task()
}

// Spawn submits task to the pool, satisfying actor.Executor.
func (p *Pool) Spawn(task func()) {
	select {
	case p.tasks <- task:
	case <-p.ctx.Done():
	}
}

// SpawnBlocking runs task on its own dedicated goroutine rather than a
// pool worker, satisfying actor.BlockingExecutor for callers that want
// to isolate long or blocking work from the cooperative pool.
func (p *Pool) SpawnBlocking(task func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runTask(task)
	}()
}

// Stop cancels the pool's context; in-flight tasks run to completion but
// no new task is accepted afterward.
func (p *Pool) Stop() {
	p.cancel()
}

// Wait blocks until every worker goroutine (and every SpawnBlocking
// goroutine) has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}
