// Package broker provides an in-memory pub/sub hub scoped by connection ID.
// It is the delivery channel between the discovery engine and the SSE
// connections: the engine emits named events addressed to one connection (or
// to all), and each SSE handler drains its connection's channel.
package broker

import (
	"log/slog"
	"sync"
)

// All is the broadcast target: every subscribed connection receives the event.
const All = "*"

// Event is one named message with a JSON-serializable payload.
type Event struct {
	Name    string
	Payload any
}

// subscriberBuffer bounds how many undelivered events a connection may queue.
// A connection that falls further behind starts losing events; the client is
// expected to resync from its next full snapshot.
const subscriberBuffer = 256

// Broker is a connection-scoped event hub safe for concurrent use.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
}

// New creates a ready-to-use Broker.
func New() *Broker {
	return &Broker{
		subs: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe returns a buffered channel that receives every event emitted to
// the given connection ID or broadcast to all connections.
func (b *Broker) Subscribe(connID string) chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[connID] == nil {
		b.subs[connID] = make(map[chan Event]struct{})
	}
	b.subs[connID][ch] = struct{}{}
	return ch
}

// Unsubscribe removes a channel from the connection's subscriber set.
// If the connection has no remaining subscribers, the entry is cleaned up.
func (b *Broker) Unsubscribe(connID string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs, ok := b.subs[connID]; ok {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(b.subs, connID)
		}
	}
}

// Emit delivers an event to one connection, or to every connection when the
// target is All. Delivery never blocks the publisher: a subscriber whose
// buffer is full loses the event.
func (b *Broker) Emit(target, name string, payload any) {
	ev := Event{Name: name, Payload: payload}

	b.mu.Lock()
	defer b.mu.Unlock()

	if target == All {
		for connID, subs := range b.subs {
			for ch := range subs {
				send(ch, ev, connID)
			}
		}
		return
	}

	for ch := range b.subs[target] {
		send(ch, ev, target)
	}
}

func send(ch chan Event, ev Event, connID string) {
	select {
	case ch <- ev:
	default:
		slog.Warn("broker: dropping event for slow subscriber",
			slog.String("conn_id", connID), slog.String("event", ev.Name))
	}
}
