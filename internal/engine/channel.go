package engine

import (
	"context"
	"sync"
)

// Listener receives every transition a store proposes.
//
// A listener settles the transition by calling Commit or Veto, either
// inside OnTransition or later from any goroutine. A listener that does
// neither leaves the decision to the others.
type Listener interface {
	OnTransition(ctx context.Context, t *Transition)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, t *Transition)

// OnTransition calls f(ctx, t).
func (f ListenerFunc) OnTransition(ctx context.Context, t *Transition) {
	f(ctx, t)
}

// Notifier broadcasts pending transitions to registered listeners.
type Notifier interface {
	// Add registers l and returns a function that removes it again.
	Add(l Listener) (unsubscribe func())

	// Notify hands t to every registered listener.
	Notify(ctx context.Context, t *Transition)
}

// Channel is the default Notifier.
//
// Listeners registered when Notify starts receive the same *Transition in
// registration order. With no listeners registered the channel commits the
// transition itself, so a store nobody listens to behaves like a plain
// history stack.
//
// Thread-safety: Channel is safe for concurrent use. Listeners run on the
// notifying goroutine without the channel's lock held, so they may call
// Add or the unsubscribe function.
type Channel struct {
	mu        sync.Mutex
	nextID    uint64
	listeners []registration
}

type registration struct {
	id       uint64
	listener Listener
}

// NewChannel creates an empty channel.
func NewChannel() *Channel {
	return &Channel{}
}

// Add implements Notifier. Calling the returned function more than once is
// a no-op.
func (c *Channel) Add(l Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, registration{id: id, listener: l})

	var once sync.Once
	return func() {
		once.Do(func() { c.remove(id) })
	}
}

// Notify implements Notifier.
func (c *Channel) Notify(ctx context.Context, t *Transition) {
	c.mu.Lock()
	listeners := make([]Listener, len(c.listeners))
	for i, r := range c.listeners {
		listeners[i] = r.listener
	}
	c.mu.Unlock()

	if len(listeners) == 0 {
		// Error is recorded on the transition.
		_ = t.Commit(ctx)
		return
	}

	for _, l := range listeners {
		l.OnTransition(ctx, t)
	}
}

// Len returns the number of registered listeners.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

func (c *Channel) remove(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, r := range c.listeners {
		if r.id == id {
			c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
			return
		}
	}
}
