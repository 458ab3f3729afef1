// Package event provides a multi-subscriber broadcast channel.
//
// A Bus delivers each published value to every active subscriber in
// publish order. New subscribers do not receive past emissions.
package event

import "sync"

// subscriberBuffer is the per-subscriber channel capacity. A subscriber
// that falls more than this many emissions behind starts losing the
// oldest unread emissions rather than blocking the publisher.
const subscriberBuffer = 16

// Bus is a broadcast publish channel with replay-none semantics.
//
// The zero value is not usable; create one with NewBus.
type Bus[T any] struct {
	mu     sync.Mutex
	subs   map[int]chan T
	nextID int
	closed bool
}

// NewBus creates an empty bus.
func NewBus[T any]() *Bus[T] {
	return &Bus[T]{
		subs: make(map[int]chan T, 4),
	}
}

// Subscribe registers a new subscriber and returns its receive channel
// together with a cancel function. The channel is closed when the
// subscription is cancelled or the bus is closed. Cancel is safe to
// call multiple times.
func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan T, subscriberBuffer)

	if b.closed {
		close(ch)

		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}

	return ch, cancel
}

// Publish delivers v to every active subscriber. Delivery preserves
// publish order per subscriber. A subscriber whose buffer is full loses
// its oldest unread emission; Publish never blocks.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs {
		for {
			select {
			case ch <- v:
			default:
				// Buffer full: evict the oldest emission and retry.
				select {
				case <-ch:
				default:
				}

				continue
			}

			break
		}
	}
}

// Close closes every subscriber channel and rejects further publishes.
// Safe to call multiple times.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Len returns the number of active subscribers.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}
