// Package events carries audit progress between the orchestrator and
// stream subscribers. Each running audit owns one Channel; subscribers
// receive events in publish order, and a done/error event is always the
// last event delivered before the channel closes.
package events

import "sync"

// Kind tags the event union.
type Kind string

const (
	KindProgress Kind = "progress"
	KindDone     Kind = "done"
	KindError    Kind = "error"
)

// Event is one item on an audit's progress stream. Step and Message are
// set for progress events; Payload carries the final summary for done
// events and Message the diagnostic for error events.
type Event struct {
	Kind    Kind
	Step    string
	Message string
	Payload any
}

// Terminal reports whether this event ends the stream.
func (e Event) Terminal() bool {
	return e.Kind == KindDone || e.Kind == KindError
}

const subscriberBuffer = 64

// Channel is a single audit's in-process broadcast channel. Publish is
// called only by the orchestrator; Subscribe only by stream handlers.
type Channel struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

func NewChannel() *Channel {
	return &Channel{subs: make(map[int]chan Event)}
}

// Publish broadcasts ev to every subscriber. A slow subscriber with a
// full buffer loses the event rather than blocking the orchestrator;
// the stream handler recovers terminal state from storage in that case.
// Publishing a terminal event closes the channel for good.
func (c *Channel) Publish(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for _, sub := range c.subs {
		select {
		case sub <- ev:
		default:
		}
	}
	if ev.Terminal() {
		c.closed = true
		for id, sub := range c.subs {
			close(sub)
			delete(c.subs, id)
		}
	}
}

// Subscribe registers a new reader. The returned cancel func is safe to
// call more than once and after the channel has closed. Subscribing to
// an already-closed channel yields a closed event channel.
func (c *Channel) Subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sub := make(chan Event, subscriberBuffer)
	if c.closed {
		close(sub)
		return sub, func() {}
	}
	id := c.nextID
	c.nextID++
	c.subs[id] = sub
	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if s, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(s)
		}
	}
	return sub, cancel
}

// Close terminates the channel without a terminal event. Used only when
// an audit is torn down abnormally.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, sub := range c.subs {
		close(sub)
		delete(c.subs, id)
	}
}
