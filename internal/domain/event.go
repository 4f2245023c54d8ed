package domain

import "encoding/json"

// Wire event names, shared with the game server.
const (
	EventNameJoinGame          = "join_game"
	EventNameStartGame         = "start_game"
	EventNameNextQuestion      = "next_question"
	EventNameSubmitAnswer      = "submit_answer"
	EventNameJoinedSuccess     = "joined_success"
	EventNameError             = "error"
	EventNameGameStarted       = "game_started"
	EventNameNewQuestion       = "new_question"
	EventNameAnswerResult      = "answer_result"
	EventNameUpdateLeaderboard = "update_leaderboard"
	EventNameGameOver          = "game_over"
	EventNamePlayerJoined      = "player_joined"
)

// Local-only event names. These never cross the wire; they exist so the phase
// reducer sees connection lifecycle and user actions as ordinary events.
const (
	EventNameConnected    = "connected"
	EventNameDisconnected = "disconnected"
	EventNameSessionReset = "session_reset"
)

// EventJoinGame is emitted when a user submits a PIN and nickname. It is also
// dispatched locally to move the session into the joining phase.
type EventJoinGame struct {
	PIN      string `json:"pin"`
	Nickname string `json:"nickname"`
}

func (EventJoinGame) Name() string { return EventNameJoinGame }

type EventStartGame struct {
	PIN string `json:"pin"`
}

func (EventStartGame) Name() string { return EventNameStartGame }

type EventNextQuestion struct {
	PIN string `json:"pin"`
}

func (EventNextQuestion) Name() string { return EventNameNextQuestion }

// EventSubmitAnswer carries the question index alongside the chosen option so
// the server can reject a stale submission credited to a later question.
type EventSubmitAnswer struct {
	PlayerID      string `json:"player_id"`
	AnswerIndex   int    `json:"answer_index"`
	PIN           string `json:"pin"`
	QuestionIndex int    `json:"question_index"`
}

func (EventSubmitAnswer) Name() string { return EventNameSubmitAnswer }

type EventJoinedSuccess struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
}

func (EventJoinedSuccess) Name() string { return EventNameJoinedSuccess }

type EventError struct {
	Message string `json:"message"`
}

func (EventError) Name() string { return EventNameError }

type EventGameStarted struct{}

func (EventGameStarted) Name() string { return EventNameGameStarted }

type EventNewQuestion struct {
	Question
}

func (EventNewQuestion) Name() string { return EventNameNewQuestion }

type EventAnswerResult struct {
	Correct bool `json:"correct"`
	Score   int  `json:"score"`
}

func (EventAnswerResult) Name() string { return EventNameAnswerResult }

// EventLeaderboardUpdated serializes as a bare array of entries, matching the
// server's update_leaderboard payload.
type EventLeaderboardUpdated struct {
	Entries []LeaderboardEntry
}

func (EventLeaderboardUpdated) Name() string { return EventNameUpdateLeaderboard }

func (e EventLeaderboardUpdated) MarshalJSON() ([]byte, error) {
	if e.Entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(e.Entries)
}

func (e *EventLeaderboardUpdated) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &e.Entries)
}

type EventGameOver struct{}

func (EventGameOver) Name() string { return EventNameGameOver }

type EventPlayerJoined struct {
	Nickname string `json:"nickname"`
	PlayerID string `json:"id,omitempty"`
}

func (EventPlayerJoined) Name() string { return EventNamePlayerJoined }

type EventConnected struct{}

func (EventConnected) Name() string { return EventNameConnected }

type EventDisconnected struct{}

func (EventDisconnected) Name() string { return EventNameDisconnected }

// EventSessionReset clears the session back to idle, retaining only the nickname.
type EventSessionReset struct{}

func (EventSessionReset) Name() string { return EventNameSessionReset }
