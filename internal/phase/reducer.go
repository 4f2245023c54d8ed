package phase

import (
	"slices"

	"github.com/victornm/quizpin/internal/domain"
	"github.com/victornm/quizpin/internal/event"
)

// Next applies one event to a session and returns the resulting session.
//
// Next is a pure function and the only place session state is derived. An event
// that cannot be interpreted against the current phase returns the input
// unchanged, never a partially applied session. Score is only ever replaced by
// a server-supplied value and is frozen once the game is over.
func Next(s domain.Session, e event.Event) domain.Session {
	switch ev := e.(type) {
	case domain.EventConnected:
		s.ConnectionStatus = domain.Connected

	case domain.EventDisconnected:
		s.ConnectionStatus = domain.Disconnected

	case domain.EventJoinGame:
		// Local join attempt. The PIN is frozen once a join succeeds, so only
		// an idle session may take a new one.
		if s.Phase != domain.PhaseIdle {
			return s
		}
		s.Phase = domain.PhaseJoining
		s.PIN = ev.PIN
		s.Nickname = ev.Nickname
		s.LastError = ""

	case domain.EventJoinedSuccess:
		if s.Phase.Active() {
			// Re-join after a reconnect: refresh identity, keep the phase.
			s.GameID = ev.GameID
			s.PlayerID = ev.PlayerID
			return s
		}
		if s.Phase != domain.PhaseIdle && s.Phase != domain.PhaseJoining {
			return s
		}
		s.Phase = domain.PhaseLobby
		s.GameID = ev.GameID
		s.PlayerID = ev.PlayerID
		s.LastError = ""

	case domain.EventError:
		s.LastError = ev.Message
		if s.Phase == domain.PhaseJoining {
			s.Phase = domain.PhaseIdle
		}

	case domain.EventGameStarted:
		if s.Phase != domain.PhaseLobby {
			return s
		}
		s.Phase = domain.PhaseQuestion

	case domain.EventNewQuestion:
		if !s.Phase.Active() {
			return s
		}
		q := ev.Question
		s.Phase = domain.PhaseQuestion
		s.CurrentQuestion = &q
		if s.AnsweredIndex != q.Index {
			s.HasAnsweredCurrent = false
			s.LastAnswerCorrect = nil
		}

	case domain.EventSubmitAnswer:
		// Local user action with an optimistic effect. Once the current
		// question index is marked answered, further submissions are no-ops,
		// including after a snapshot restore.
		if s.Phase != domain.PhaseQuestion || s.CurrentQuestion == nil {
			return s
		}
		if ev.QuestionIndex != s.CurrentQuestion.Index {
			return s
		}
		if s.HasAnsweredCurrent && s.AnsweredIndex == ev.QuestionIndex {
			return s
		}
		s.Phase = domain.PhaseAnswered
		s.HasAnsweredCurrent = true
		s.AnsweredIndex = ev.QuestionIndex

	case domain.EventAnswerResult:
		if s.Phase != domain.PhaseAnswered {
			return s
		}
		correct := ev.Correct
		s.LastAnswerCorrect = &correct
		s.Score = ev.Score

	case domain.EventLeaderboardUpdated:
		if !s.Phase.Active() {
			return s
		}
		s.Leaderboard = slices.Clone(ev.Entries)
		// The leaderboard replaces the view only once the participant is done
		// with the question; host views render it as an overlay from the
		// session regardless of phase.
		if s.Phase == domain.PhaseAnswered || s.Phase == domain.PhaseLeaderboard {
			s.Phase = domain.PhaseLeaderboard
		}

	case domain.EventPlayerJoined:
		if !s.Phase.Active() || domain.IsObserver(ev.Nickname) {
			return s
		}
		for _, r := range s.Roster {
			if r.Nickname == ev.Nickname {
				return s
			}
		}
		s.Roster = append(slices.Clone(s.Roster), domain.RosterEntry{Nickname: ev.Nickname})

	case domain.EventGameOver:
		if !s.Phase.Active() {
			return s
		}
		s.Phase = domain.PhaseGameOver
		s.CurrentQuestion = nil

	case domain.EventSessionReset:
		// Local-only reset back to idle; the nickname survives so the user
		// does not retype it for the next game.
		nickname := s.Nickname
		status := s.ConnectionStatus
		s = domain.EmptySession()
		s.Nickname = nickname
		s.ConnectionStatus = status
	}

	return s
}
