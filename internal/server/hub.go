package server

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/victornm/quizpin/internal/channel"
	"github.com/victornm/quizpin/internal/event"
)

// client is one websocket connection attached to a game room. Writes go
// through the send channel so one slow connection never blocks a broadcast.
type client struct {
	conn *websocket.Conn
	send chan []byte

	mu       sync.Mutex
	pin      string
	playerID string
	nickname string
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, 16),
	}
}

func (c *client) identity() (pin, playerID, nickname string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pin, c.playerID, c.nickname
}

func (c *client) setIdentity(pin, playerID, nickname string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pin, c.playerID, c.nickname = pin, playerID, nickname
}

// writePump drains the send channel onto the wire. It exits when the channel
// closes, which is how the hub drops a client.
func (c *client) writePump() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
}

// hub tracks which connections belong to which game room, keyed by PIN.
type hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

func newHub() *hub {
	return &hub{rooms: make(map[string]map[*client]struct{})}
}

func (h *hub) join(pin string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[pin]
	if room == nil {
		room = make(map[*client]struct{})
		h.rooms[pin] = room
	}
	room[c] = struct{}{}
}

func (h *hub) leave(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	pin, _, _ := c.identity()
	if room := h.rooms[pin]; room != nil {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, pin)
		}
	}
}

// broadcast sends one event to every connection in a room.
func (h *hub) broadcast(pin string, name string, data any) {
	msg, err := marshalFrame(name, data)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[pin] {
		select {
		case c.send <- msg:
		default:
			// Slow client: skip this frame rather than stall the room.
		}
	}
}

// sendTo delivers one event to a single connection.
func (h *hub) sendTo(c *client, name string, data any) {
	msg, err := marshalFrame(name, data)
	if err != nil {
		return
	}

	select {
	case c.send <- msg:
	default:
	}
}

func marshalFrame(name string, data any) ([]byte, error) {
	f := channel.Frame{Event: name}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		f.Data = b
	}
	return json.Marshal(f)
}

// sendEvent marshals a typed event into a frame for a single connection.
func (h *hub) sendEvent(c *client, e event.Event) {
	h.sendTo(c, e.Name(), e)
}

// broadcastEvent marshals a typed event into a frame for a whole room.
func (h *hub) broadcastEvent(pin string, e event.Event) {
	h.broadcast(pin, e.Name(), e)
}
