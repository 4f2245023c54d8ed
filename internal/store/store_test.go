package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizpin/internal/domain"
	"github.com/victornm/quizpin/internal/store"
)

func TestStore_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	snaps := openSnapshots(t)

	s := store.New(ctx, store.Config{Snapshots: snaps})

	s.Dispatch(ctx, domain.EventConnected{})
	s.Dispatch(ctx, domain.EventJoinGame{PIN: "123456", Nickname: "Ana"})
	s.Dispatch(ctx, domain.EventJoinedSuccess{GameID: "g1", PlayerID: "p1"})
	s.Dispatch(ctx, domain.EventNewQuestion{Question: domain.Question{
		Index:   2,
		Text:    "2+2?",
		Options: []string{"1", "2", "3", "4"},
	}})
	s.Dispatch(ctx, domain.EventSubmitAnswer{PlayerID: "p1", AnswerIndex: 3, PIN: "123456", QuestionIndex: 2})
	want := s.Dispatch(ctx, domain.EventAnswerResult{Correct: true, Score: 100})

	// A new store over the same database is the reload case.
	restored := store.New(ctx, store.Config{Snapshots: snaps}).Read()

	// Reconnection state is not carried across restarts.
	want.ConnectionStatus = domain.Disconnected
	assert.Equal(t, want, restored, "restored session must match field for field")
}

func TestStore_RestoredSessionStillRejectsResubmission(t *testing.T) {
	ctx := context.Background()
	snaps := openSnapshots(t)

	s := store.New(ctx, store.Config{Snapshots: snaps})
	s.Dispatch(ctx, domain.EventJoinGame{PIN: "123456", Nickname: "Ana"})
	s.Dispatch(ctx, domain.EventJoinedSuccess{GameID: "g1", PlayerID: "p1"})
	s.Dispatch(ctx, domain.EventNewQuestion{Question: domain.Question{Index: 2, Text: "q", Options: []string{"a", "b", "c", "d"}}})
	s.Dispatch(ctx, domain.EventSubmitAnswer{PlayerID: "p1", AnswerIndex: 1, PIN: "123456", QuestionIndex: 2})

	reloaded := store.New(ctx, store.Config{Snapshots: snaps})
	sess := reloaded.Read()
	require.True(t, sess.HasAnsweredCurrent)
	require.Equal(t, 2, sess.AnsweredIndex)

	// The server re-sends the active question on rejoin; answering it again
	// must stay a no-op.
	reloaded.Dispatch(ctx, domain.EventNewQuestion{Question: domain.Question{Index: 2, Text: "q", Options: []string{"a", "b", "c", "d"}}})
	after := reloaded.Dispatch(ctx, domain.EventSubmitAnswer{PlayerID: "p1", AnswerIndex: 3, PIN: "123456", QuestionIndex: 2})

	assert.True(t, after.HasAnsweredCurrent)
	assert.Equal(t, domain.PhaseQuestion, after.Phase, "the duplicate submission must not transition the phase")
}

func TestStore_CorruptSnapshotFallsBackToEmptySession(t *testing.T) {
	ctx := context.Background()
	snaps := openSnapshots(t)

	require.NoError(t, snaps.Save(ctx, store.Namespace, []byte("{not json")))

	s := store.New(ctx, store.Config{Snapshots: snaps})
	assert.Equal(t, domain.EmptySession(), s.Read())
}

func TestStore_MissingSnapshotIsEmptySession(t *testing.T) {
	s := store.New(context.Background(), store.Config{Snapshots: openSnapshots(t)})
	assert.Equal(t, domain.EmptySession(), s.Read())
}

func TestStore_NoSnapshotBackendIsStillUsable(t *testing.T) {
	ctx := context.Background()
	s := store.New(ctx, store.Config{})

	got := s.Dispatch(ctx, domain.EventJoinGame{PIN: "123456", Nickname: "Ana"})
	assert.Equal(t, domain.PhaseJoining, got.Phase)
}

func TestStore_ResetRetainsNicknameAndPersists(t *testing.T) {
	ctx := context.Background()
	snaps := openSnapshots(t)

	s := store.New(ctx, store.Config{Snapshots: snaps})
	s.Dispatch(ctx, domain.EventJoinGame{PIN: "123456", Nickname: "Ana"})
	s.Dispatch(ctx, domain.EventJoinedSuccess{GameID: "g1", PlayerID: "p1"})
	s.Dispatch(ctx, domain.EventGameOver{})

	got := s.Reset(ctx)
	assert.Equal(t, domain.PhaseIdle, got.Phase)
	assert.Equal(t, "Ana", got.Nickname)
	assert.Empty(t, got.PIN)

	restored := store.New(ctx, store.Config{Snapshots: snaps}).Read()
	assert.Equal(t, domain.PhaseIdle, restored.Phase)
	assert.Equal(t, "Ana", restored.Nickname)
}

func TestStore_ForgetDeletesTheSnapshot(t *testing.T) {
	ctx := context.Background()
	snaps := openSnapshots(t)

	s := store.New(ctx, store.Config{Snapshots: snaps})
	s.Dispatch(ctx, domain.EventJoinGame{PIN: "123456", Nickname: "Ana"})
	s.Dispatch(ctx, domain.EventJoinedSuccess{GameID: "g1", PlayerID: "p1"})

	got := s.Forget(ctx)
	assert.Equal(t, domain.EmptySession(), got, "forgetting keeps nothing, not even the nickname")

	data, err := snaps.Load(ctx, store.Namespace)
	require.NoError(t, err)
	assert.Empty(t, data, "the snapshot row must be gone")

	restored := store.New(ctx, store.Config{Snapshots: snaps}).Read()
	assert.Equal(t, domain.EmptySession(), restored)
}

func openSnapshots(t *testing.T) *store.SQLiteSnapshots {
	t.Helper()

	snaps, err := store.OpenSnapshots(filepath.Join(t.TempDir(), "quizpin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = snaps.Close() })

	return snaps
}
