package channel

import (
	"sync"
	"testing"
	"time"

	"github.com/arbiter-run/arbiter/actor"
	"github.com/arbiter-run/arbiter/executor"
	"go.uber.org/goleak"
)

// recorder is a minimal actor.Actor[any] used to observe delivery order.
type recorder struct {
	mu  sync.Mutex
	got []any
}

func (r *recorder) Receive(ctx *actor.Context[any], msg any, sender actor.Reference) {
	r.mu.Lock()
	r.got = append(r.got, msg)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.got...)
}

func TestChannelDeliversInOrderPerSubscriber(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := executor.New(4, nil)
	defer func() { pool.Stop(); pool.Wait() }()

	root, _ := actor.NewTestRoot(pool, actor.DefaultThroughput)

	chanRef, err := actor.ActorOf(root, "chan", actor.Props[Msg]{New: New})
	if err != nil {
		t.Fatalf("spawn channel: %v", err)
	}

	rec1 := &recorder{}
	rec2 := &recorder{}
	ref1, _ := actor.ActorOf(root, "s1", actor.Props[any]{New: func() actor.Actor[any] { return rec1 }})
	ref2, _ := actor.ActorOf(root, "s2", actor.Props[any]{New: func() actor.Actor[any] { return rec2 }})

	chanRef.Tell(Msg{Subscribe: &Subscribe{Topic: "x", Subscriber: ref1.Reference}}, actor.Reference{})
	chanRef.Tell(Msg{Subscribe: &Subscribe{Topic: "x", Subscriber: ref2.Reference}}, actor.Reference{})

	chanRef.Tell(Msg{Publish: &Publish{Topic: "x", Msg: "m1"}}, actor.Reference{})
	chanRef.Tell(Msg{Publish: &Publish{Topic: "x", Msg: "m2"}}, actor.Reference{})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(rec1.snapshot()) == 2 && len(rec2.snapshot()) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	got1 := rec1.snapshot()
	got2 := rec2.snapshot()
	if len(got1) != 2 || got1[0] != "m1" || got1[1] != "m2" {
		t.Fatalf("s1 got %v, want [m1 m2]", got1)
	}
	if len(got2) != 2 || got2[0] != "m1" || got2[1] != "m2" {
		t.Fatalf("s2 got %v, want [m1 m2]", got2)
	}
}

func TestChannelSubscribeAllReceivesEveryTopic(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := executor.New(4, nil)
	defer func() { pool.Stop(); pool.Wait() }()

	root, _ := actor.NewTestRoot(pool, actor.DefaultThroughput)

	chanRef, err := actor.ActorOf(root, "chan", actor.Props[Msg]{New: New})
	if err != nil {
		t.Fatalf("spawn channel: %v", err)
	}

	rec := &recorder{}
	ref, _ := actor.ActorOf(root, "all", actor.Props[any]{New: func() actor.Actor[any] { return rec }})

	chanRef.Tell(Msg{SubscribeAll: &SubscribeAll{Subscriber: ref.Reference}}, actor.Reference{})
	chanRef.Tell(Msg{Publish: &Publish{Topic: "a", Msg: "one"}}, actor.Reference{})
	chanRef.Tell(Msg{Publish: &Publish{Topic: "b", Msg: "two"}}, actor.Reference{})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(rec.snapshot()) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	got := rec.snapshot()
	if len(got) != 2 {
		t.Fatalf("all-subscriber got %v, want 2 messages across topics", got)
	}
}

func TestChannelUnsubscribeStopsDelivery(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := executor.New(4, nil)
	defer func() { pool.Stop(); pool.Wait() }()

	root, _ := actor.NewTestRoot(pool, actor.DefaultThroughput)

	chanRef, err := actor.ActorOf(root, "chan", actor.Props[Msg]{New: New})
	if err != nil {
		t.Fatalf("spawn channel: %v", err)
	}

	rec := &recorder{}
	ref, _ := actor.ActorOf(root, "s1", actor.Props[any]{New: func() actor.Actor[any] { return rec }})

	chanRef.Tell(Msg{Subscribe: &Subscribe{Topic: "x", Subscriber: ref.Reference}}, actor.Reference{})
	chanRef.Tell(Msg{Publish: &Publish{Topic: "x", Msg: "m1"}}, actor.Reference{})
	chanRef.Tell(Msg{Unsubscribe: &Unsubscribe{Topic: "x", Subscriber: ref.Reference}}, actor.Reference{})
	chanRef.Tell(Msg{Publish: &Publish{Topic: "x", Msg: "m2"}}, actor.Reference{})

	time.Sleep(100 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 1 || got[0] != "m1" {
		t.Fatalf("subscriber got %v, want exactly [m1]", got)
	}
}
