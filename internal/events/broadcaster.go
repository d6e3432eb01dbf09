// Package events delivers "applications changed" notifications from the sync
// engine to observers such as the dashboard aggregator.
package events

import (
	"sync"
)

// Broadcaster fans a change signal out to its subscribers. Signals carry no
// payload and coalesce: a subscriber that has not consumed the previous signal
// receives a single pending one. Notify never blocks.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan struct{}
	closed bool
}

// NewBroadcaster returns a broadcaster without subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: map[int]chan struct{}{}}
}

// Subscribe registers a subscriber. The returned function unsubscribes and
// closes the channel; it may be called more than once.
func (b *Broadcaster) Subscribe() (<-chan struct{}, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan struct{}, 1)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Notify signals every subscriber.
func (b *Broadcaster) Notify() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of active subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later subscriptions receive a
// closed channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
