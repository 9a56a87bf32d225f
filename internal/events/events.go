// ABOUTME: Typed publish/subscribe topics
// ABOUTME: One Topic per event type replaces enum-keyed delegate maps
package events

import (
	"sort"
	"sync"
)

// Subscription identifies a handler registered on a topic
type Subscription uint64

// Topic delivers values of one event type to its subscribers, synchronously and in
// subscription order
type Topic[T any] struct {
	mu       sync.RWMutex
	next     Subscription
	handlers map[Subscription]func(T)
}

// Subscribe registers fn and returns a handle for Unsubscribe
func (t *Topic[T]) Subscribe(fn func(T)) Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handlers == nil {
		t.handlers = make(map[Subscription]func(T))
	}
	t.next++
	t.handlers[t.next] = fn
	return t.next
}

// Unsubscribe removes a handler; unknown handles are ignored
func (t *Topic[T]) Unsubscribe(id Subscription) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.handlers, id)
}

// Publish calls every handler with v. Handlers may subscribe or unsubscribe
// from within a callback.
func (t *Topic[T]) Publish(v T) {
	t.mu.RLock()
	ids := make([]Subscription, 0, len(t.handlers))
	for id := range t.handlers {
		ids = append(ids, id)
	}
	fns := make(map[Subscription]func(T), len(t.handlers))
	for id, fn := range t.handlers {
		fns[id] = fn
	}
	t.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		fns[id](v)
	}
}

// Len returns the number of subscribers
func (t *Topic[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.handlers)
}
