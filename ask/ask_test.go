package ask

import (
	"testing"
	"time"

	"github.com/arbiter-run/arbiter/actor"
	"github.com/arbiter-run/arbiter/executor"
	"go.uber.org/goleak"
)

type echoActor struct{}

func (echoActor) Receive(ctx *actor.Context[any], msg any, sender actor.Reference) {
	sender.Tell(msg, ctx.Myself().Reference)
}

type silentActor struct{}

func (silentActor) Receive(ctx *actor.Context[any], msg any, sender actor.Reference) {}

func TestAskReturnsReply(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := executor.New(2, nil)
	defer func() { pool.Stop(); pool.Wait() }()
	root, _ := actor.NewTestRoot(pool, actor.DefaultThroughput)

	echo, err := actor.ActorOf(root, "echo", actor.Props[any]{New: func() actor.Actor[any] { return echoActor{} }})
	if err != nil {
		t.Fatalf("spawn echo: %v", err)
	}

	got, err := AskTimeout(root, echo.Reference, "hello", time.Second)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if got != "hello" {
		t.Fatalf("got %v, want hello", got)
	}
}

func TestAskTimesOutWithoutReply(t *testing.T) {
	defer goleak.VerifyNone(t)

	pool := executor.New(2, nil)
	defer func() { pool.Stop(); pool.Wait() }()
	root, _ := actor.NewTestRoot(pool, actor.DefaultThroughput)

	silent, err := actor.ActorOf(root, "silent", actor.Props[any]{New: func() actor.Actor[any] { return silentActor{} }})
	if err != nil {
		t.Fatalf("spawn silent: %v", err)
	}

	_, err = AskTimeout(root, silent.Reference, "hello", 50*time.Millisecond)
	if err != ErrTimeout {
		t.Fatalf("got err %v, want ErrTimeout", err)
	}
}
