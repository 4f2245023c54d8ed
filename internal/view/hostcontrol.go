package view

import (
	"context"

	"github.com/victornm/quizpin/internal/domain"
	"github.com/victornm/quizpin/internal/event"
)

// HostControl is the admin's remote: it observes the game under the reserved
// ADMIN identity and drives it forward. It never counts itself as a player.
type HostControl struct {
	controller
}

func NewHostControl(c Config) *HostControl {
	return &HostControl{controller: newController(c)}
}

func (h *HostControl) Mount(ctx context.Context) {
	redraw := func(ctx context.Context, e event.Event) error {
		h.Render()
		return nil
	}

	for _, name := range []string{
		domain.EventNamePlayerJoined,
		domain.EventNameNewQuestion,
		domain.EventNameUpdateLeaderboard,
		domain.EventNameGameOver,
	} {
		h.subscribe(name, redraw)
	}
}

// Join attaches the control view to a game as the ADMIN observer.
func (h *HostControl) Join(ctx context.Context, pin string) error {
	if err := h.ch.Connect(ctx); err != nil {
		return err
	}

	e := domain.EventJoinGame{PIN: pin, Nickname: domain.NicknameAdmin}
	h.store.Dispatch(ctx, e)
	return h.ch.Emit(ctx, e)
}

// StartGame tells the server to begin; the server answers with game_started
// and the first question.
func (h *HostControl) StartGame(ctx context.Context) error {
	return h.ch.Emit(ctx, domain.EventStartGame{PIN: h.Session().PIN})
}

// NextQuestion advances the game; the server answers with new_question or
// game_over when the questions run out.
func (h *HostControl) NextQuestion(ctx context.Context) error {
	return h.ch.Emit(ctx, domain.EventNextQuestion{PIN: h.Session().PIN})
}

func (h *HostControl) Render() {
	sess := h.Session()
	players := sess.Players()

	h.printf("PIN %s | players: %d\n", sess.PIN, len(players))

	switch sess.Phase {
	case domain.PhaseLobby:
		for _, p := range players {
			h.printf("  + %s\n", p.Nickname)
		}
		h.printf("Type 'start' to begin.\n")

	case domain.PhaseQuestion, domain.PhaseAnswered:
		if q := sess.CurrentQuestion; q != nil {
			h.printf("On question %d: %s\n", q.Index+1, q.Text)
		}
		// The host never answers, so its phase stays on the question while
		// standings stream in. Overlay them as they arrive.
		if ranking := sess.Ranking(); len(ranking) > 0 {
			h.printf("Standings so far:\n")
			for i, e := range ranking {
				h.printf("  %d. %s  %d pts\n", i+1, e.Nickname, e.Score)
			}
		}
		h.printf("Type 'next' to advance.\n")

	case domain.PhaseLeaderboard:
		h.printf("Ranking:\n")
		for i, e := range sess.Ranking() {
			h.printf("  %d. %s  %d pts\n", i+1, e.Nickname, e.Score)
		}
		h.printf("Type 'next' to advance.\n")

	case domain.PhaseGameOver:
		h.printf("Game finished.\n")
	}
}
