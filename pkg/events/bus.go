// Package events provides a small publish/subscribe bus that hosts hand to
// plugins through their execution context.
//
// The plugin core never interprets the bus. It is carried untouched from the
// caller of ExecutePlugin to the plugin instance so that plugins can report
// progress or request host actions while they run.
//
//	bus := events.NewBus(64)
//	sub := bus.Subscribe()
//	defer sub.Close()
//
//	go func() {
//		for msg := range sub.C() {
//			fmt.Println(msg.Topic, msg.Payload)
//		}
//	}()
package events

import (
	"errors"
	"sync"
	"time"
)

// ErrNoSubscribers is returned by Publish when nobody is listening.
var ErrNoSubscribers = errors.New("events: no active subscribers")

// ErrClosed is returned by Publish after the bus has been closed.
var ErrClosed = errors.New("events: bus closed")

// Message is a single bus event.
type Message struct {
	Topic   string
	Source  string
	Payload interface{}
	SentAt  time.Time
}

// Bus fans each published message out to every current subscriber.
// Slow subscribers lose messages instead of blocking the publisher.
type Bus struct {
	capacity int
	mu       sync.RWMutex
	subs     map[*Subscription]struct{}
	closed   bool
}

// NewBus creates a bus whose subscriptions buffer up to capacity messages.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 1
	}
	return &Bus{
		capacity: capacity,
		subs:     make(map[*Subscription]struct{}),
	}
}

// Subscription receives messages published after it was created.
type Subscription struct {
	bus     *Bus
	ch      chan Message
	once    sync.Once
	dropped uint64
	mu      sync.Mutex
}

// Subscribe registers a new subscriber.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		bus: b,
		ch:  make(chan Message, b.capacity),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Publish delivers msg to all subscribers and returns how many received it.
func (b *Bus) Publish(msg Message) (int, error) {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, ErrClosed
	}
	if len(b.subs) == 0 {
		return 0, ErrNoSubscribers
	}

	delivered := 0
	for sub := range b.subs {
		select {
		case sub.ch <- msg:
			delivered++
		default:
			sub.mu.Lock()
			sub.dropped++
			sub.mu.Unlock()
		}
	}
	return delivered, nil
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close detaches and closes every subscription. Further publishes fail.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		delete(b.subs, sub)
		sub.once.Do(func() { close(sub.ch) })
	}
}

// C returns the receive channel. It is closed when the subscription or the bus closes.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Dropped reports how many messages were discarded because the buffer was full.
func (s *Subscription) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()
	s.once.Do(func() { close(s.ch) })
}
