package view_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/quizpin/internal/domain"
	"github.com/victornm/quizpin/internal/store"
	"github.com/victornm/quizpin/internal/view"
)

func TestHostControl_ObserversAreExcludedFromRoster(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.New(ctx, store.Config{})
	ch := newFakeChannel()

	var out bytes.Buffer
	h := view.NewHostControl(view.Config{Store: st, Channel: ch, Out: &out})
	h.Mount(ctx)
	defer h.Unmount()

	require.NoError(t, h.Join(ctx, "123456"))
	require.Len(t, ch.emitted, 1)
	assert.Equal(t, domain.EventJoinGame{PIN: "123456", Nickname: domain.NicknameAdmin}, ch.emitted[0])

	ch.push(ctx, st, domain.EventJoinedSuccess{GameID: "g1", PlayerID: "obs1"})
	ch.push(ctx, st, domain.EventPlayerJoined{Nickname: domain.NicknameAdmin})
	ch.push(ctx, st, domain.EventPlayerJoined{Nickname: domain.NicknameDisplay})
	ch.push(ctx, st, domain.EventPlayerJoined{Nickname: "Ana"})
	ch.push(ctx, st, domain.EventPlayerJoined{Nickname: "Leo"})

	out.Reset()
	h.Render()

	rendered := out.String()
	assert.Contains(t, rendered, "players: 2")
	assert.NotContains(t, rendered, domain.NicknameAdmin)
	assert.NotContains(t, rendered, domain.NicknameDisplay)
}

func TestHostControl_StartAndNextCarryThePIN(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.New(ctx, store.Config{})
	ch := newFakeChannel()
	h := view.NewHostControl(view.Config{Store: st, Channel: ch})

	require.NoError(t, h.Join(ctx, "123456"))
	require.NoError(t, h.StartGame(ctx))
	require.NoError(t, h.NextQuestion(ctx))

	require.Len(t, ch.emitted, 3)
	assert.Equal(t, domain.EventStartGame{PIN: "123456"}, ch.emitted[1])
	assert.Equal(t, domain.EventNextQuestion{PIN: "123456"}, ch.emitted[2])
}

func TestHostControl_ShowsStandingsDuringQuestion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.New(ctx, store.Config{})
	ch := newFakeChannel()

	var out bytes.Buffer
	h := view.NewHostControl(view.Config{Store: st, Channel: ch, Out: &out})
	h.Mount(ctx)
	defer h.Unmount()

	require.NoError(t, h.Join(ctx, "123456"))
	ch.push(ctx, st, domain.EventJoinedSuccess{GameID: "g1", PlayerID: "obs1"})
	ch.push(ctx, st, domain.EventPlayerJoined{Nickname: "Ana"})
	ch.push(ctx, st, domain.EventNewQuestion{Question: domain.Question{Index: 0, Text: "2+2?", Options: []string{"1", "2", "3", "4"}}})

	// The host never answers, so it is still on the question when the first
	// standings arrive. They must show up anyway.
	ch.push(ctx, st, domain.EventLeaderboardUpdated{Entries: []domain.LeaderboardEntry{
		{Nickname: "Ana", Score: 100},
	}})
	require.Equal(t, domain.PhaseQuestion, st.Read().Phase)

	out.Reset()
	h.Render()
	assert.Contains(t, out.String(), "Ana  100 pts")
}

func TestHostDisplay_ShowsStandingsDuringQuestion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.New(ctx, store.Config{})
	ch := newFakeChannel()

	var out bytes.Buffer
	d := view.NewHostDisplay(view.Config{Store: st, Channel: ch, Out: &out})
	d.Mount(ctx)
	defer d.Unmount()

	require.NoError(t, d.Join(ctx, "123456"))
	ch.push(ctx, st, domain.EventJoinedSuccess{GameID: "g1", PlayerID: "obs2"})
	ch.push(ctx, st, domain.EventNewQuestion{Question: domain.Question{Index: 0, Text: "2+2?", Options: []string{"1", "2", "3", "4"}}})
	ch.push(ctx, st, domain.EventLeaderboardUpdated{Entries: []domain.LeaderboardEntry{
		{Nickname: "Ana", Score: 100},
		{Nickname: domain.NicknameAdmin, Score: 0},
	}})
	require.Equal(t, domain.PhaseQuestion, st.Read().Phase)

	out.Reset()
	d.Render()

	rendered := out.String()
	assert.Contains(t, rendered, "2+2?", "the question stays on screen")
	assert.Contains(t, rendered, "Ana  100 pts")
	assert.NotContains(t, rendered, domain.NicknameAdmin)
}

func TestHostDisplay_LeaderboardHidesObserversAndKeepsServerOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.New(ctx, store.Config{})
	ch := newFakeChannel()

	var out bytes.Buffer
	d := view.NewHostDisplay(view.Config{Store: st, Channel: ch, Out: &out})
	d.Mount(ctx)
	defer d.Unmount()

	require.NoError(t, d.Join(ctx, "123456"))
	ch.push(ctx, st, domain.EventJoinedSuccess{GameID: "g1", PlayerID: "obs2"})
	ch.push(ctx, st, domain.EventLeaderboardUpdated{Entries: []domain.LeaderboardEntry{
		{Nickname: "Eva", Score: 200},
		{Nickname: domain.NicknameAdmin, Score: 0},
		{Nickname: "Ana", Score: 200}, // tie: server put Eva first, that order stays
		{Nickname: "Leo", Score: 100},
	}})
	ch.push(ctx, st, domain.EventGameOver{})

	out.Reset()
	d.Render()

	rendered := out.String()
	assert.NotContains(t, rendered, domain.NicknameAdmin)
	assert.Less(t, strings.Index(rendered, "Eva"), strings.Index(rendered, "Ana"),
		"server tie-break order must be preserved")
	assert.Less(t, strings.Index(rendered, "Ana"), strings.Index(rendered, "Leo"))
}

func TestHostDisplay_CountdownResetsOnEveryQuestion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.New(ctx, store.Config{})
	ch := newFakeChannel()
	d := view.NewHostDisplay(view.Config{Store: st, Channel: ch})
	d.Mount(ctx)
	defer d.Unmount()

	require.NoError(t, d.Join(ctx, "123456"))
	ch.push(ctx, st, domain.EventJoinedSuccess{GameID: "g1", PlayerID: "obs2"})

	ch.push(ctx, st, domain.EventNewQuestion{Question: domain.Question{Index: 0, Text: "q", Options: []string{"a", "b", "c", "d"}}})
	first := d.Remaining()

	ch.push(ctx, st, domain.EventNewQuestion{Question: domain.Question{Index: 1, Text: "q", Options: []string{"a", "b", "c", "d"}}})
	second := d.Remaining()

	assert.Equal(t, first, second, "each question restarts the full countdown")
	assert.Equal(t, 20, second)
}

func TestHostDisplay_LobbyShowsJoinQR(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.New(ctx, store.Config{})
	ch := newFakeChannel()

	var out bytes.Buffer
	d := view.NewHostDisplay(view.Config{
		Store:   st,
		Channel: ch,
		Out:     &out,
		JoinURL: "http://localhost:8080/join?pin=123456",
	})

	require.NoError(t, d.Join(ctx, "123456"))
	ch.push(ctx, st, domain.EventJoinedSuccess{GameID: "g1", PlayerID: "obs2"})

	out.Reset()
	d.Render()

	rendered := out.String()
	assert.Contains(t, rendered, "JOIN WITH PIN: 123456")
	assert.Contains(t, rendered, "█", "lobby should render the QR code blocks")
}
