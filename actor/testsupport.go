package actor

import "github.com/arbiter-run/arbiter/path"

// TestHarness is a minimal SystemHandle for this package's own tests and
// for downstream packages (channel, scheduler, deadletter) whose tests
// need a live, rooted actor tree without constructing a full
// ActorSystem (which lives in the root package and would import these
// packages right back - see system_handle.go's doc comment).
type TestHarness struct {
	EventsCh chan any
}

// NewTestHarness builds a TestHarness with a small buffered event
// channel; PublishEvent drops events once the buffer is full rather than
// block a cell's drain loop.
func NewTestHarness() *TestHarness {
	return &TestHarness{EventsCh: make(chan any, 256)}
}

func (h *TestHarness) PublishEvent(evt any) {
	select {
	case h.EventsCh <- evt:
	default:
	}
}

func (h *TestHarness) DeadLetter(env Envelope, recipient path.Path) {
	h.PublishEvent(DeadLetterEvent{RecipientPath: recipient, Sender: env.Sender})
}

func (h *TestHarness) Scheduler() SchedulerHandle { return nil }

func (h *TestHarness) GuardianFailed(error) {}

// NewTestRoot builds a fresh Registry/Dispatcher/guardian cell rooted at
// /test over exec, and returns a Spawner for it (to pass to ActorOf) plus
// the TestHarness backing its SystemHandle. Exported for use by this
// module's other packages' tests; not part of the public library
// surface described in SPEC_FULL.md §6.
func NewTestRoot(exec Executor, throughput int) (Spawner, *TestHarness) {
	h := NewTestHarness()
	reg := NewRegistry(h)
	disp := NewDispatcher(exec, throughput)
	root := NewNoopGuardian(path.MustParse("/test"), reg, disp, h, DefaultSupervisorStrategy(), 0, false)
	return root, h
}
