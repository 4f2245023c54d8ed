package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/victornm/quizpin/internal/domain"
	"github.com/victornm/quizpin/internal/event"
)

// Frame is the wire envelope shared with the game server.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Dispatcher receives every inbound event before the views do, so the session
// is already reduced by the time a view handler re-reads it.
type Dispatcher interface {
	Dispatch(ctx context.Context, e event.Event) domain.Session
}

// Channel owns the single websocket connection to the game server. It is
// process-wide and shared by every mounted view; views register handlers via
// Subscribe and must deregister them on unmount.
//
// The channel never connects on its own: Connect is called on an explicit user
// action (submitting a PIN, opening a host view). On an unexpected disconnect
// the session flips to disconnected and no replay is attempted; recovery is a
// resync query against the REST boundary or a manual rejoin.
type Channel struct {
	url   string
	store Dispatcher
	bus   *event.Bus

	mu   sync.Mutex // guards conn
	wmu  sync.Mutex // serializes writes
	conn *websocket.Conn
}

type Config struct {
	// URL of the server's websocket endpoint, e.g. ws://localhost:8080/ws.
	URL   string
	Store Dispatcher
}

func New(c Config) *Channel {
	return &Channel{
		url:   c.URL,
		store: c.Store,
		bus:   event.NewBus(),
	}
}

// Connect dials the server. Calling it while already connected is a no-op.
func (c *Channel) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("channel: dial %s: %w", c.url, err)
	}
	c.conn = conn
	c.mu.Unlock()

	c.store.Dispatch(ctx, domain.EventConnected{})
	c.bus.Publish(ctx, domain.EventConnected{})

	// The read loop outlives the dialing call.
	go c.readLoop(context.WithoutCancel(ctx), conn)
	return nil
}

// Connected reports whether a live connection exists.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Emit sends one event to the server. When not connected it is a silent no-op;
// callers are responsible for checking the connection state first.
func (c *Channel) Emit(ctx context.Context, e event.Event) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("channel: marshal %s: %w", e.Name(), err)
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := conn.WriteJSON(Frame{Event: e.Name(), Data: data}); err != nil {
		return fmt.Errorf("channel: emit %s: %w", e.Name(), err)
	}
	return nil
}

// Subscribe registers a handler for one inbound event and returns its
// deregistration function.
func (c *Channel) Subscribe(name string, h event.Handler) func() {
	return c.bus.Subscribe(name, h)
}

// Close tears the connection down deliberately.
func (c *Channel) Close(ctx context.Context) {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return
	}

	c.wmu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	c.wmu.Unlock()
	_ = conn.Close()

	c.store.Dispatch(ctx, domain.EventDisconnected{})
	c.bus.Publish(ctx, domain.EventDisconnected{})
}

func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			c.dropped(ctx, conn, err)
			return
		}

		e, err := Decode(f)
		if err != nil {
			// A frame the client cannot interpret must be dropped, never
			// half-applied to the session.
			slog.WarnContext(ctx, "channel: dropping frame", "event", f.Event, "error", err)
			continue
		}

		// Reduce first, then notify views, so handlers read converged state.
		c.store.Dispatch(ctx, e)
		c.bus.Publish(ctx, e)
	}
}

func (c *Channel) dropped(ctx context.Context, conn *websocket.Conn, err error) {
	c.mu.Lock()
	deliberate := c.conn == nil
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()

	if deliberate {
		return
	}

	if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		slog.WarnContext(ctx, "channel: connection lost", "error", err)
	}

	_ = conn.Close()
	c.store.Dispatch(ctx, domain.EventDisconnected{})
	c.bus.Publish(ctx, domain.EventDisconnected{})
}

// Decode maps an inbound frame to its typed event. Unknown event names are an
// error so stray frames never reach the reducer.
func Decode(f Frame) (event.Event, error) {
	data := f.Data
	if len(data) == 0 {
		data = []byte("{}")
	}

	switch f.Event {
	case domain.EventNameJoinedSuccess:
		return decodeAs[domain.EventJoinedSuccess](f.Event, data)
	case domain.EventNameError:
		return decodeAs[domain.EventError](f.Event, data)
	case domain.EventNameGameStarted:
		return domain.EventGameStarted{}, nil
	case domain.EventNameNewQuestion:
		return decodeAs[domain.EventNewQuestion](f.Event, data)
	case domain.EventNameAnswerResult:
		return decodeAs[domain.EventAnswerResult](f.Event, data)
	case domain.EventNameUpdateLeaderboard:
		if len(f.Data) == 0 {
			data = []byte("[]")
		}
		return decodeAs[domain.EventLeaderboardUpdated](f.Event, data)
	case domain.EventNameGameOver:
		return domain.EventGameOver{}, nil
	case domain.EventNamePlayerJoined:
		return decodeAs[domain.EventPlayerJoined](f.Event, data)
	default:
		return nil, fmt.Errorf("unknown event %q", f.Event)
	}
}

func decodeAs[T event.Event](name string, data []byte) (event.Event, error) {
	var e T
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return e, nil
}
