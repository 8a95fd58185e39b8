// Package deadletter implements the dead-letter sink (C9, §4.9): "the
// dead-letter actor is itself an ordinary cell, so subscribers may
// observe and log." It also keeps a small bounded history beyond what
// the spec requires, for operator inspection, grounded in the
// hashicorp/golang-lru/v2 usage pattern found in the example pack.
package deadletter

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/arbiter-run/arbiter/actor"
	"github.com/arbiter-run/arbiter/log"
)

// DefaultHistoryPerPath bounds how many recent dead letters are kept per
// recipient path before the oldest is evicted.
const DefaultHistoryPerPath = 32

// Sink is an actor.Actor[actor.DeadLetterEvent]: every dead Tell in the
// system, having already been published on the event stream by
// SystemHandle.DeadLetter, is also delivered here as an ordinary
// message so a running cell can log and accumulate history.
type Sink struct {
	log     log.Logger
	history *lru.Cache[string, []actor.DeadLetterEvent]
	perPath int
}

// New constructs a Sink. perPath <= 0 selects DefaultHistoryPerPath.
func New(logger log.Logger, perPath int) actor.Actor[actor.DeadLetterEvent] {
	if perPath <= 0 {
		perPath = DefaultHistoryPerPath
	}
	cache, err := lru.New[string, []actor.DeadLetterEvent](1024)
	if err != nil {
		// Only returns an error for a non-positive size, which 1024
		// never triggers.
		panic(err)
	}
	return &Sink{log: log.OrDiscard(logger), history: cache, perPath: perPath}
}

func (s *Sink) Receive(ctx *actor.Context[actor.DeadLetterEvent], msg actor.DeadLetterEvent, sender actor.Reference) {
	key := msg.RecipientPath.String()
	s.log.Warnf("dead letter: type=%s sender=%s recipient=%s", msg.MsgTypeID, msg.Sender.Path(), key)

	entries, _ := s.history.Get(key)
	entries = append(entries, msg)
	if len(entries) > s.perPath {
		entries = entries[len(entries)-s.perPath:]
	}
	s.history.Add(key, entries)
}

// RecentFor returns the most recently recorded dead letters addressed to
// recipient, oldest first. Intended for operator tooling (e.g. the
// cmd/arbiterd CLI), not the mailbox path.
func (s *Sink) RecentFor(recipient string) []actor.DeadLetterEvent {
	entries, ok := s.history.Get(recipient)
	if !ok {
		return nil
	}
	return append([]actor.DeadLetterEvent(nil), entries...)
}
