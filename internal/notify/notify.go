// Package notify provides synchronous change notification.
//
// A Notifier keeps an ordered set of observers and delivers each value to
// all of them, in subscription order, on the caller's goroutine. The
// history manager uses it for stack status changes and the config watcher
// uses it for reloads.
package notify

import (
	"sync"
)

// Observer is called when a value is published.
type Observer[T any] func(value T)

// Subscription represents an active observer subscription.
type Subscription struct {
	id          uint64
	unsubscribe func(id uint64)
	once        sync.Once
}

// Unsubscribe removes this subscription. Safe to call more than once and
// on a nil Subscription.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.unsubscribe == nil {
		return
	}
	s.once.Do(func() {
		s.unsubscribe(s.id)
	})
}

type entry[T any] struct {
	id       uint64
	observer Observer[T]
}

// Notifier manages subscriptions for values of type T.
// The zero value is ready to use.
type Notifier[T any] struct {
	mu        sync.RWMutex
	observers []entry[T]
	nextID    uint64
	closed    bool
}

// New creates a new Notifier.
func New[T any]() *Notifier[T] {
	return &Notifier[T]{}
}

// Subscribe registers an observer. A nil observer is ignored and returns
// an inert subscription.
func (n *Notifier[T]) Subscribe(observer Observer[T]) *Subscription {
	if observer == nil {
		return &Subscription{}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.observers = append(n.observers, entry[T]{id: id, observer: observer})

	return &Subscription{id: id, unsubscribe: n.unsubscribe}
}

// Notify delivers value to every observer registered at the time of the
// call. Observers run outside the lock, so they may subscribe or
// unsubscribe.
func (n *Notifier[T]) Notify(value T) {
	n.mu.RLock()
	if n.closed || len(n.observers) == 0 {
		n.mu.RUnlock()
		return
	}
	observers := make([]Observer[T], len(n.observers))
	for i, e := range n.observers {
		observers[i] = e.observer
	}
	n.mu.RUnlock()

	for _, obs := range observers {
		obs(value)
	}
}

// Len returns the number of active subscriptions.
func (n *Notifier[T]) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.observers)
}

// Close drops all observers and stops delivery. It is safe to call Close
// multiple times.
func (n *Notifier[T]) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.observers = nil
}

func (n *Notifier[T]) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, e := range n.observers {
		if e.id == id {
			n.observers = append(n.observers[:i], n.observers[i+1:]...)
			return
		}
	}
}
