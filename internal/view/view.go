// Package view holds the three controllers of the game UI: Player, HostControl
// and HostDisplay. Each one is a projection of the single session store plus a
// fixed subscription set on the shared realtime channel; none of them keeps
// game state of its own.
package view

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/victornm/quizpin/internal/domain"
	"github.com/victornm/quizpin/internal/event"
	"github.com/victornm/quizpin/internal/store"
)

// Channel is the slice of the realtime channel a view controller needs.
type Channel interface {
	Connect(ctx context.Context) error
	Emit(ctx context.Context, e event.Event) error
	Subscribe(name string, h event.Handler) func()
}

type Config struct {
	Store   *store.Store
	Channel Channel
	// Out receives the rendered view. Defaults to io.Discard.
	Out io.Writer
	// JoinURL, when set, is rendered as a QR code on the host display lobby.
	JoinURL string
}

// controller is the mount/unmount plumbing shared by the three views. The
// channel is process-wide, so every subscription taken on mount must be
// released on unmount or a dead view keeps reacting to the next view's events.
type controller struct {
	store *store.Store
	ch    Channel

	outMu sync.Mutex
	out   io.Writer

	subMu  sync.Mutex
	unsubs []func()
}

func newController(c Config) controller {
	out := c.Out
	if out == nil {
		out = io.Discard
	}
	return controller{
		store: c.Store,
		ch:    c.Channel,
		out:   out,
	}
}

func (c *controller) subscribe(name string, h event.Handler) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.unsubs = append(c.unsubs, c.ch.Subscribe(name, h))
}

// Unmount releases every subscription this view took.
func (c *controller) Unmount() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
}

// Session returns the current authoritative session.
func (c *controller) Session() domain.Session {
	return c.store.Read()
}

func (c *controller) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
