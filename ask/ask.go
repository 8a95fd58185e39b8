// Package ask implements the ask pattern as a user-space convenience
// built entirely on the public actor API (§9 design notes: "implemented
// outside the core as a temp actor under /temp that fulfills a one-shot
// completion; only the core contracts (temp path, auto-stop on first
// message) are required"). It is not part of the runtime core.
package ask

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arbiter-run/arbiter/actor"
)

// ErrTimeout is returned when target does not reply within the given
// deadline.
var ErrTimeout = errors.New("ask: timed out waiting for reply")

type askActor struct {
	replies chan any
}

func (a *askActor) Receive(ctx *actor.Context[any], msg any, sender actor.Reference) {
	select {
	case a.replies <- msg:
	default:
	}
	ctx.Stop(ctx.Myself().Reference)
}

// Ask spawns a single-use temp actor under temp (expected to be the
// ActorSystem's /temp guardian), tells target the request with that temp
// actor as sender, waits for the first reply or ctx's deadline, then
// stops the temp actor regardless of outcome (askActor also self-stops
// on first delivery, so this is a safety net for the no-reply case).
func Ask(ctx context.Context, temp actor.Spawner, target actor.Reference, request any) (any, error) {
	replies := make(chan any, 1)
	name := "ask-" + uuid.NewString()

	ref, err := actor.ActorOf(temp, name, actor.Props[any]{
		New:             func() actor.Actor[any] { return &askActor{replies: replies} },
		MailboxCapacity: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("ask: spawn temp actor: %w", err)
	}
	defer ref.Stop()

	target.Tell(request, ref.Reference)

	select {
	case v := <-replies:
		return v, nil
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}

// AskTimeout is a convenience wrapper around Ask using a plain timeout
// instead of a caller-supplied context.
func AskTimeout(temp actor.Spawner, target actor.Reference, request any, timeout time.Duration) (any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return Ask(ctx, temp, target, request)
}
