// Package channel implements the topic-routed publish/subscribe
// component (C7, §4.7): "a channel is itself an actor" whose protocol is
// Subscribe/Unsubscribe/Publish/SubscribeAll.
package channel

import (
	"sync"

	"github.com/arbiter-run/arbiter/actor"
)

// allTopic is the sentinel topic every subscriber via SubscribeAll is
// filed under, alongside whatever topic-specific subscriptions exist
// (§3 "plus a sentinel All topic").
const allTopic = "\x00all\x00"

// Subscribe, Unsubscribe, Publish and SubscribeAll are the channel
// actor's user protocol (§4.7).
type (
	Subscribe struct {
		Topic      string
		Subscriber actor.Reference
	}
	Unsubscribe struct {
		Topic      string
		Subscriber actor.Reference
	}
	Publish struct {
		Topic string
		Msg   any
	}
	SubscribeAll struct {
		Subscriber actor.Reference
	}
)

// Msg is the channel actor's mailbox type: exactly one of the four
// protocol messages above.
type Msg struct {
	Subscribe    *Subscribe
	Unsubscribe  *Unsubscribe
	Publish      *Publish
	SubscribeAll *SubscribeAll
}

// Channel is the actor.Actor[Msg] implementation backing a pub/sub
// topic space. Delivery is best-effort and unordered across subscribers,
// but ordered per (publisher, subscriber) pair, because each
// subscriber's mailbox is itself FIFO per sender (§4.7).
type Channel struct {
	mu   sync.Mutex
	subs map[string]map[string]actor.Reference // topic -> subscriberKey -> Reference
}

// New constructs an empty Channel. Pass this as Props[Msg].New when
// spawning the channel under the system, e.g. via actor.ActorOf.
func New() actor.Actor[Msg] {
	return &Channel{subs: make(map[string]map[string]actor.Reference)}
}

func subKey(r actor.Reference) string {
	return r.Path().String()
}

func (c *Channel) Receive(ctx *actor.Context[Msg], msg Msg, sender actor.Reference) {
	switch {
	case msg.Subscribe != nil:
		c.subscribe(msg.Subscribe.Topic, msg.Subscribe.Subscriber)
	case msg.Unsubscribe != nil:
		c.unsubscribe(msg.Unsubscribe.Topic, msg.Unsubscribe.Subscriber)
	case msg.SubscribeAll != nil:
		c.subscribe(allTopic, msg.SubscribeAll.Subscriber)
	case msg.Publish != nil:
		c.publish(msg.Publish.Topic, msg.Publish.Msg, sender)
	}
}

func (c *Channel) subscribe(topic string, ref actor.Reference) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.subs[topic]
	if !ok {
		m = make(map[string]actor.Reference)
		c.subs[topic] = m
	}
	m[subKey(ref)] = ref
}

func (c *Channel) unsubscribe(topic string, ref actor.Reference) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.subs[topic]; ok {
		delete(m, subKey(ref))
	}
}

// publish tells every subscriber of topic, plus every All subscriber,
// pruning any that have since terminated (subscriptions are lazily
// pruned on next publish touching that entry, §3). Pruning here is a
// best-effort hygiene pass, not correctness-critical: Tell to a
// terminated reference already dead-letters safely.
func (c *Channel) publish(topic string, payload any, sender actor.Reference) {
	c.mu.Lock()
	targets := make([]actor.Reference, 0, 8)
	for _, topicKey := range []string{topic, allTopic} {
		if m, ok := c.subs[topicKey]; ok {
			for key, ref := range m {
				select {
				case <-ref.Done():
					delete(m, key)
					continue
				default:
				}
				targets = append(targets, ref)
			}
		}
	}
	c.mu.Unlock()

	for _, ref := range targets {
		ref.Tell(payload, sender)
	}
}
