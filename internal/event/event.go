package event

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
)

type Event interface {
	Name() string
}

type Handler func(ctx context.Context, e Event) error

type subscription struct {
	id int
	h  Handler
}

// Bus is an in-memory event bus. Dispatch is synchronous and in subscription
// order: the game state machine relies on events being observed one at a time,
// in the order the channel delivered them, so handlers never run concurrently
// with the publisher.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string][]subscription
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]subscription),
	}
}

// Subscribe registers a handler for an event and returns the function that
// deregisters it. Callers that stop listening must invoke it, or stale handlers
// keep firing on events meant for someone else.
func (b *Bus) Subscribe(name string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[name] = append(b.handlers[name], subscription{id: id, h: h})

	return func() { b.unsubscribe(name, id) }
}

func (b *Bus) unsubscribe(name string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[name] = slices.DeleteFunc(b.handlers[name], func(s subscription) bool {
		return s.id == id
	})
}

// Publish an event to every subscriber, in subscription order.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	subs := slices.Clone(b.handlers[e.Name()])
	b.mu.RUnlock()

	for _, s := range subs {
		b.dispatch(ctx, s.h, e)
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "event: handler panic",
				"error", fmt.Errorf("%v, stack: %s", r, debug.Stack()),
			)
		}
	}()

	if err := h(ctx, e); err != nil {
		slog.ErrorContext(ctx, "event: handle event failed",
			"event", e.Name(),
			"error", err,
		)
	}
}
