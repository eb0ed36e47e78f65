// Package eventbus is an in-process publish/subscribe bus. The analysis
// service and the nutrition planner publish run and chunk events on it; the
// run history recorder consumes them.
//
// Each subscription is a buffered channel. Publish never blocks: an event
// for a full subscriber is dropped and counted. Nothing is persisted.
package eventbus

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Event is a single published message.
type Event struct {
	Topic   string
	Payload any
}

// EventBus is the interface for publishing and subscribing to topics.
type EventBus interface {
	Publish(topic string, payload any)
	Subscribe(topic string) <-chan Event
	Unsubscribe(topic string, ch <-chan Event)
}

const defaultBufferSize = 100

// Bus is the in-memory implementation of EventBus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event
	dropped     atomic.Int64
	logger      *slog.Logger
}

// New returns a Bus that discards its own log output.
func New() *Bus {
	return NewWithLogger(nil)
}

// NewWithLogger returns a Bus that logs dropped events at debug level.
func NewWithLogger(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bus{
		subscribers: make(map[string][]chan Event),
		logger:      logger,
	}
}

// Subscribe registers a new subscriber for topic and returns a read-only channel.
// Events published before Subscribe returns are not delivered to it.
func (b *Bus) Subscribe(topic string) <-chan Event {
	ch := make(chan Event, defaultBufferSize)
	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes ch from topic and closes it. Unknown channels are ignored.
func (b *Bus) Unsubscribe(topic string, ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subscribers[topic]
	for i, c := range subs {
		if c == ch {
			b.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
			close(c)
			return
		}
	}
}

// Publish sends an Event to all subscribers of topic.
func (b *Bus) Publish(topic string, payload any) {
	evt := Event{Topic: topic, Payload: payload}
	// hold the read lock while sending so Unsubscribe cannot close a channel mid-send
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- evt:
		default:
			b.dropped.Add(1)
			b.logger.Debug("event dropped, subscriber buffer full", "topic", topic)
		}
	}
}

// Dropped returns how many deliveries were skipped because a buffer was full.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}
