package statemachine

import (
	"context"
	"slices"
)

// Subscription identifies a registered listener so it can be removed later.
type Subscription uint64

type listener[E any] struct {
	id Subscription
	fn func(ctx context.Context, ev E)
}

// Notifier is an ordered multicast list of listeners. Listeners are called
// in subscription order. The zero value is ready to use; it is not safe for
// concurrent use.
type Notifier[E any] struct {
	next      Subscription
	listeners []listener[E]
}

// Subscribe adds fn to the end of the list and returns its handle.
// A nil fn is ignored and yields the zero Subscription.
func (n *Notifier[E]) Subscribe(fn func(ctx context.Context, ev E)) Subscription {
	if fn == nil {
		return 0
	}

	n.next++
	n.listeners = append(n.listeners, listener[E]{id: n.next, fn: fn})

	return n.next
}

// Unsubscribe removes the listener with the given handle. It reports
// whether a listener was removed.
func (n *Notifier[E]) Unsubscribe(sub Subscription) bool {
	idx := slices.IndexFunc(n.listeners, func(l listener[E]) bool {
		return l.id == sub
	})
	if idx < 0 {
		return false
	}

	n.listeners = slices.Delete(n.listeners, idx, idx+1)

	return true
}

// Notify calls every listener with ev. Listeners added or removed while
// notifying take effect on the next call.
func (n *Notifier[E]) Notify(ctx context.Context, ev E) {
	if n == nil || len(n.listeners) == 0 {
		return
	}

	for _, l := range slices.Clone(n.listeners) {
		l.fn(ctx, ev)
	}
}

// Len returns the number of registered listeners.
func (n *Notifier[E]) Len() int {
	if n == nil {
		return 0
	}

	return len(n.listeners)
}
