package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/victornm/quizpin/internal/domain"
	"github.com/victornm/quizpin/internal/event"
	"github.com/victornm/quizpin/internal/phase"
)

// Namespace keys the persisted session snapshot.
const Namespace = "quizpin:session"

// Snapshots persists serialized session snapshots keyed by namespace.
type Snapshots interface {
	Load(ctx context.Context, namespace string) ([]byte, error)
	Save(ctx context.Context, namespace string, data []byte) error
	Delete(ctx context.Context, namespace string) error
}

// Store is the single owner of the local session. All mutation goes through
// Dispatch, which applies the phase reducer and rewrites the snapshot, so no
// view can hold a diverging copy of the game state.
type Store struct {
	mu      sync.Mutex
	session domain.Session
	snaps   Snapshots
}

type Config struct {
	Snapshots Snapshots
}

// New creates a store pre-populated from the persisted snapshot, so a reload
// can resume the session before the channel reconnects. A missing or corrupt
// snapshot falls back to the empty session; it is never an error.
func New(ctx context.Context, c Config) *Store {
	s := &Store{
		session: domain.EmptySession(),
		snaps:   c.Snapshots,
	}

	if s.snaps == nil {
		return s
	}

	data, err := s.snaps.Load(ctx, Namespace)
	if err != nil {
		slog.WarnContext(ctx, "store: load snapshot failed", "error", err)
		return s
	}
	if len(data) == 0 {
		return s
	}

	var restored domain.Session
	if err := json.Unmarshal(data, &restored); err != nil {
		slog.WarnContext(ctx, "store: discarding corrupt snapshot", "error", err)
		return s
	}

	// The channel is not connected yet, whatever the snapshot claims.
	restored.ConnectionStatus = domain.Disconnected
	s.session = restored
	return s
}

// Read returns the current session.
func (s *Store) Read() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Dispatch applies one event through the phase reducer and persists the result.
// Events are applied one at a time; the last applied event wins.
func (s *Store) Dispatch(ctx context.Context, e event.Event) domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = phase.Next(s.session, e)
	s.persist(ctx)
	return s.session
}

// Reset clears the session back to idle, retaining the nickname.
func (s *Store) Reset(ctx context.Context) domain.Session {
	return s.Dispatch(ctx, domain.EventSessionReset{})
}

// Forget drops the session entirely, snapshot included. Used when the game a
// snapshot points at no longer exists; the next run starts from nothing.
func (s *Store) Forget(ctx context.Context) domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = domain.EmptySession()
	if s.snaps != nil {
		if err := s.snaps.Delete(ctx, Namespace); err != nil {
			slog.WarnContext(ctx, "store: delete snapshot failed", "error", err)
		}
	}
	return s.session
}

func (s *Store) persist(ctx context.Context) {
	if s.snaps == nil {
		return
	}

	data, err := json.Marshal(s.session)
	if err != nil {
		slog.ErrorContext(ctx, "store: marshal snapshot failed", "error", err)
		return
	}

	if err := s.snaps.Save(ctx, Namespace, data); err != nil {
		slog.WarnContext(ctx, "store: save snapshot failed", "error", err)
	}
}
