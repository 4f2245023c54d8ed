package view

import (
	"context"
	"strings"
	"sync"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/victornm/quizpin/internal/domain"
	"github.com/victornm/quizpin/internal/event"
)

// questionSeconds is the length of the cosmetic countdown. It is presentation
// only: answer acceptance is decided by the server, and the timer never drives
// a phase transition.
const questionSeconds = 20

// HostDisplay is the shared projector screen: the lobby with the join PIN and
// QR code, the running question with a countdown bar, the ranking and the
// final podium. It observes under the reserved HOST_DISPLAY identity.
type HostDisplay struct {
	controller

	joinURL string

	cdMu      sync.Mutex
	remaining int
	cancelCd  context.CancelFunc
}

func NewHostDisplay(c Config) *HostDisplay {
	return &HostDisplay{
		controller: newController(c),
		joinURL:    c.JoinURL,
	}
}

func (d *HostDisplay) Mount(ctx context.Context) {
	redraw := func(ctx context.Context, e event.Event) error {
		d.Render()
		return nil
	}

	for _, name := range []string{
		domain.EventNamePlayerJoined,
		domain.EventNameUpdateLeaderboard,
		domain.EventNameGameOver,
	} {
		d.subscribe(name, redraw)
	}

	d.subscribe(domain.EventNameNewQuestion, func(ctx context.Context, e event.Event) error {
		d.resetCountdown(ctx)
		d.Render()
		return nil
	})
}

// Unmount releases subscriptions and stops the countdown.
func (d *HostDisplay) Unmount() {
	d.stopCountdown()
	d.controller.Unmount()
}

// Join attaches the display to a game as the HOST_DISPLAY observer.
func (d *HostDisplay) Join(ctx context.Context, pin string) error {
	if err := d.ch.Connect(ctx); err != nil {
		return err
	}

	e := domain.EventJoinGame{PIN: pin, Nickname: domain.NicknameDisplay}
	d.store.Dispatch(ctx, e)
	return d.ch.Emit(ctx, e)
}

// Remaining returns the countdown's current value, for rendering only.
func (d *HostDisplay) Remaining() int {
	d.cdMu.Lock()
	defer d.cdMu.Unlock()
	return d.remaining
}

func (d *HostDisplay) resetCountdown(ctx context.Context) {
	d.cdMu.Lock()
	if d.cancelCd != nil {
		d.cancelCd()
	}
	cdCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancelCd = cancel
	d.remaining = questionSeconds
	d.cdMu.Unlock()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-cdCtx.Done():
				return
			case <-ticker.C:
				d.cdMu.Lock()
				if d.remaining > 0 {
					d.remaining--
				}
				left := d.remaining
				d.cdMu.Unlock()

				d.Render()
				if left == 0 {
					return
				}
			}
		}
	}()
}

func (d *HostDisplay) stopCountdown() {
	d.cdMu.Lock()
	defer d.cdMu.Unlock()
	if d.cancelCd != nil {
		d.cancelCd()
		d.cancelCd = nil
	}
}

func (d *HostDisplay) Render() {
	sess := d.Session()

	switch sess.Phase {
	case domain.PhaseLobby, domain.PhaseJoining:
		d.printf("JOIN WITH PIN: %s\n", sess.PIN)
		if qr := d.joinQR(); qr != "" {
			d.printf("%s", qr)
		}
		players := sess.Players()
		d.printf("Players in the room: %d\n", len(players))
		for _, p := range players {
			d.printf("  %s\n", p.Nickname)
		}

	case domain.PhaseQuestion, domain.PhaseAnswered:
		d.printf("[%s] %ds\n", countdownBar(d.Remaining()), d.Remaining())
		if q := sess.CurrentQuestion; q != nil {
			d.printf("%s\n", q.Text)
			for i, opt := range q.Options {
				d.printf("  [%d] %s\n", i, opt)
			}
		}
		// Standings overlay while answers come in; the display itself never
		// leaves the question phase.
		if ranking := sess.Ranking(); len(ranking) > 0 {
			d.printf("STANDINGS\n")
			if len(ranking) > 5 {
				ranking = ranking[:5]
			}
			for i, e := range ranking {
				d.printf("  %d. %s  %d pts\n", i+1, e.Nickname, e.Score)
			}
		}

	case domain.PhaseLeaderboard:
		d.printf("RANKING\n")
		ranking := sess.Ranking()
		if len(ranking) > 5 {
			ranking = ranking[:5]
		}
		for i, e := range ranking {
			d.printf("  %d. %s  %d pts\n", i+1, e.Nickname, e.Score)
		}

	case domain.PhaseGameOver:
		d.printf("FINAL PODIUM\n")
		ranking := sess.Ranking()
		if len(ranking) > 3 {
			ranking = ranking[:3]
		}
		for i, e := range ranking {
			d.printf("  #%d %s  %d pts\n", i+1, e.Nickname, e.Score)
		}
	}
}

func (d *HostDisplay) joinQR() string {
	if d.joinURL == "" {
		return ""
	}

	qr, err := qrcode.New(d.joinURL, qrcode.Medium)
	if err != nil {
		return ""
	}
	return qr.ToSmallString(false)
}

func countdownBar(remaining int) string {
	if remaining < 0 {
		remaining = 0
	}
	if remaining > questionSeconds {
		remaining = questionSeconds
	}
	return strings.Repeat("#", remaining) + strings.Repeat(" ", questionSeconds-remaining)
}
