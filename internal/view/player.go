package view

import (
	"context"
	"strings"
	"sync"

	"github.com/victornm/quizpin/internal/domain"
	"github.com/victornm/quizpin/internal/errors"
	"github.com/victornm/quizpin/internal/event"
)

// Player is the participant view: it joins with a PIN and nickname, renders the
// active question and submits answers.
type Player struct {
	controller

	// submitMu makes the answered-check and the emit one step, so a double
	// click cannot slip a second submit_answer onto the wire.
	submitMu sync.Mutex
}

func NewPlayer(c Config) *Player {
	return &Player{controller: newController(c)}
}

// Mount registers the player's subscription set. The returned state is rendered
// on every event; Unmount must be called when the view goes away.
func (p *Player) Mount(ctx context.Context) {
	redraw := func(ctx context.Context, e event.Event) error {
		p.Render()
		return nil
	}

	for _, name := range []string{
		domain.EventNameJoinedSuccess,
		domain.EventNameError,
		domain.EventNameGameStarted,
		domain.EventNameNewQuestion,
		domain.EventNameAnswerResult,
		domain.EventNameGameOver,
	} {
		p.subscribe(name, redraw)
	}
}

// Join connects the channel and announces the player. The channel is only ever
// connected here, on the explicit user action, never at startup.
func (p *Player) Join(ctx context.Context, pin, nickname string) error {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("nickname is required"))
	}
	if domain.IsObserver(nickname) {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("nickname %q is reserved", nickname))
	}

	if err := p.ch.Connect(ctx); err != nil {
		return err
	}

	e := domain.EventJoinGame{PIN: pin, Nickname: nickname}
	p.store.Dispatch(ctx, e)
	return p.ch.Emit(ctx, e)
}

// Rejoin re-announces a restored session after a reload or reconnect. The
// server answers with joined_success and re-sends the active question.
func (p *Player) Rejoin(ctx context.Context) error {
	sess := p.Session()
	if sess.PIN == "" || sess.Nickname == "" {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("no session to rejoin"))
	}

	if err := p.ch.Connect(ctx); err != nil {
		return err
	}
	return p.ch.Emit(ctx, domain.EventJoinGame{PIN: sess.PIN, Nickname: sess.Nickname})
}

// SubmitAnswer submits the chosen option for the current question. Once the
// current question index is answered, further calls are silent no-ops: at most
// one submit_answer leaves the process per question, reloads included.
func (p *Player) SubmitAnswer(ctx context.Context, index int) error {
	p.submitMu.Lock()
	defer p.submitMu.Unlock()

	sess := p.Session()
	if sess.Phase != domain.PhaseQuestion || sess.CurrentQuestion == nil {
		return nil
	}
	if sess.HasAnsweredCurrent && sess.AnsweredIndex == sess.CurrentQuestion.Index {
		return nil
	}
	if index < 0 || index >= len(sess.CurrentQuestion.Options) {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("answer index %d out of range", index))
	}

	e := domain.EventSubmitAnswer{
		PlayerID:      sess.PlayerID,
		AnswerIndex:   index,
		PIN:           sess.PIN,
		QuestionIndex: sess.CurrentQuestion.Index,
	}
	p.store.Dispatch(ctx, e)
	if err := p.ch.Emit(ctx, e); err != nil {
		return err
	}

	p.Render()
	return nil
}

// Leave resets the session back to idle, the equivalent of navigating home.
func (p *Player) Leave(ctx context.Context) {
	p.store.Reset(ctx)
	p.Render()
}

// Render writes the current view of the session.
func (p *Player) Render() {
	sess := p.Session()

	switch sess.Phase {
	case domain.PhaseIdle:
		if sess.LastError != "" {
			p.printf("! %s\n", sess.LastError)
		}
		p.printf("Enter a game PIN to join.\n")

	case domain.PhaseJoining:
		p.printf("Joining game %s as %s...\n", sess.PIN, sess.Nickname)

	case domain.PhaseLobby:
		p.printf("You're in! Waiting for the host to start...\n")

	case domain.PhaseQuestion:
		if sess.CurrentQuestion == nil {
			p.printf("Get ready...\n")
			return
		}
		p.printf("Q%d: %s\n", sess.CurrentQuestion.Index+1, sess.CurrentQuestion.Text)
		for i, opt := range sess.CurrentQuestion.Options {
			p.printf("  [%d] %s\n", i, opt)
		}

	case domain.PhaseAnswered:
		switch {
		case sess.LastAnswerCorrect == nil:
			p.printf("Answer sent, waiting for the result...\n")
		case *sess.LastAnswerCorrect:
			p.printf("Correct! Score: %d\n", sess.Score)
		default:
			p.printf("Wrong answer. Score: %d\n", sess.Score)
		}

	case domain.PhaseLeaderboard:
		p.printf("Ranking:\n")
		for i, e := range sess.Ranking() {
			p.printf("  %d. %s  %d pts\n", i+1, e.Nickname, e.Score)
		}

	case domain.PhaseGameOver:
		p.printf("Game over! Final score: %d\n", sess.Score)
	}
}
