package channel_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizpin/internal/channel"
	"github.com/victornm/quizpin/internal/domain"
	"github.com/victornm/quizpin/internal/event"
	"github.com/victornm/quizpin/internal/store"
)

func TestChannel_EmitWithoutConnectIsSilentNoop(t *testing.T) {
	t.Parallel()

	st := store.New(context.Background(), store.Config{})
	ch := channel.New(channel.Config{URL: "ws://127.0.0.1:0/ws", Store: st})

	err := ch.Emit(context.Background(), domain.EventJoinGame{PIN: "123456", Nickname: "Ana"})
	assert.NoError(t, err)
	assert.False(t, ch.Connected())
}

func TestChannel_ConnectIsIdempotent(t *testing.T) {
	t.Parallel()

	var upgrades atomic.Int32
	srv := newWSServer(t, func(conn *websocket.Conn) {
		upgrades.Add(1)
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ctx := context.Background()
	st := store.New(ctx, store.Config{})
	ch := channel.New(channel.Config{URL: srv.wsURL, Store: st})

	require.NoError(t, ch.Connect(ctx))
	require.NoError(t, ch.Connect(ctx))
	require.NoError(t, ch.Connect(ctx))
	defer ch.Close(ctx)

	assert.True(t, ch.Connected())
	assert.Equal(t, int32(1), upgrades.Load())
	assert.Equal(t, domain.Connected, st.Read().ConnectionStatus)
}

func TestChannel_InboundEventsReduceThenNotifyInOrder(t *testing.T) {
	t.Parallel()

	srv := newWSServer(t, func(conn *websocket.Conn) {
		// Wait for the join before pushing the scripted game.
		_, _, err := conn.ReadMessage()
		if err != nil {
			return
		}

		writeFrame(conn, domain.EventNameJoinedSuccess, domain.EventJoinedSuccess{GameID: "g1", PlayerID: "p1"})
		writeFrame(conn, domain.EventNameGameStarted, nil)
		writeFrame(conn, "bogus_event", map[string]string{"x": "y"}) // must be dropped
		writeFrame(conn, domain.EventNameNewQuestion, domain.Question{Index: 0, Text: "2+2?", Options: []string{"1", "2", "3", "4"}})
		writeFrame(conn, domain.EventNameGameOver, nil)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	ctx := context.Background()
	st := store.New(ctx, store.Config{})
	ch := channel.New(channel.Config{URL: srv.wsURL, Store: st})

	var (
		mu    sync.Mutex
		seen  []string
		track = func(ctx context.Context, e event.Event) error {
			mu.Lock()
			seen = append(seen, e.Name())
			mu.Unlock()
			return nil
		}
	)
	for _, name := range []string{
		domain.EventNameJoinedSuccess,
		domain.EventNameGameStarted,
		domain.EventNameNewQuestion,
		domain.EventNameGameOver,
	} {
		unsub := ch.Subscribe(name, track)
		defer unsub()
	}

	// Handlers observe the session after the reducer ran.
	phaseAt := make(map[string]domain.Phase)
	unsub := ch.Subscribe(domain.EventNameNewQuestion, func(ctx context.Context, e event.Event) error {
		mu.Lock()
		phaseAt[domain.EventNameNewQuestion] = st.Read().Phase
		mu.Unlock()
		return nil
	})
	defer unsub()

	require.NoError(t, ch.Connect(ctx))
	defer ch.Close(ctx)

	st.Dispatch(ctx, domain.EventJoinGame{PIN: "123456", Nickname: "Ana"})
	require.NoError(t, ch.Emit(ctx, domain.EventJoinGame{PIN: "123456", Nickname: "Ana"}))

	require.Eventually(t, func() bool {
		return st.Read().Phase == domain.PhaseGameOver
	}, 3*time.Second, 10*time.Millisecond, "scripted game should end in game over")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		domain.EventNameJoinedSuccess,
		domain.EventNameGameStarted,
		domain.EventNameNewQuestion,
		domain.EventNameGameOver,
	}, seen, "events must arrive in server order, with unknown frames dropped")
	assert.Equal(t, domain.PhaseQuestion, phaseAt[domain.EventNameNewQuestion])
}

func TestChannel_ServerDisconnectFlipsStatus(t *testing.T) {
	t.Parallel()

	srv := newWSServer(t, func(conn *websocket.Conn) {
		_ = conn.Close() // drop the client immediately
	})

	ctx := context.Background()
	st := store.New(ctx, store.Config{})
	ch := channel.New(channel.Config{URL: srv.wsURL, Store: st})

	require.NoError(t, ch.Connect(ctx))

	require.Eventually(t, func() bool {
		return st.Read().ConnectionStatus == domain.Disconnected && !ch.Connected()
	}, 3*time.Second, 10*time.Millisecond)
}

func TestDecode(t *testing.T) {
	t.Parallel()

	t.Run("update_leaderboard decodes a bare array", func(t *testing.T) {
		e, err := channel.Decode(channel.Frame{
			Event: domain.EventNameUpdateLeaderboard,
			Data:  json.RawMessage(`[{"nickname":"Ana","score":100},{"nickname":"Leo","score":50}]`),
		})
		require.NoError(t, err)

		lb, ok := e.(domain.EventLeaderboardUpdated)
		require.True(t, ok)
		assert.Equal(t, []domain.LeaderboardEntry{
			{Nickname: "Ana", Score: 100},
			{Nickname: "Leo", Score: 50},
		}, lb.Entries)
	})

	t.Run("unknown event names are rejected", func(t *testing.T) {
		_, err := channel.Decode(channel.Frame{Event: "mystery"})
		assert.Error(t, err)
	})

	t.Run("malformed payloads are rejected, not half-applied", func(t *testing.T) {
		_, err := channel.Decode(channel.Frame{
			Event: domain.EventNameNewQuestion,
			Data:  json.RawMessage(`"not an object"`),
		})
		assert.Error(t, err)
	})
}

type wsServer struct {
	*httptest.Server
	wsURL string
}

func newWSServer(t *testing.T, handle func(conn *websocket.Conn)) *wsServer {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(srv.Close)

	return &wsServer{
		Server: srv,
		wsURL:  "ws" + strings.TrimPrefix(srv.URL, "http"),
	}
}

func writeFrame(conn *websocket.Conn, name string, data any) {
	f := channel.Frame{Event: name}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			panic(err)
		}
		f.Data = b
	}
	_ = conn.WriteJSON(f)
}
