package domain

// ConnectionStatus reports the state of the realtime channel.
type ConnectionStatus string

const (
	Disconnected ConnectionStatus = "DISCONNECTED"
	Connecting   ConnectionStatus = "CONNECTING"
	Connected    ConnectionStatus = "CONNECTED"
)

// Phase is the current stage of the game-flow state machine.
type Phase string

const (
	PhaseIdle        Phase = "IDLE"
	PhaseJoining     Phase = "JOINING"
	PhaseLobby       Phase = "LOBBY"
	PhaseQuestion    Phase = "QUESTION"
	PhaseAnswered    Phase = "ANSWERED"
	PhaseLeaderboard Phase = "LEADERBOARD"
	PhaseGameOver    Phase = "GAME_OVER"
)

// Active reports whether the phase is between a successful join and game over.
func (p Phase) Active() bool {
	switch p {
	case PhaseLobby, PhaseQuestion, PhaseAnswered, PhaseLeaderboard:
		return true
	}
	return false
}

// Reserved observer nicknames. Host views join the event channel under these
// identities and must never be counted as players.
const (
	NicknameAdmin   = "ADMIN"
	NicknameDisplay = "HOST_DISPLAY"
)

// IsObserver reports whether a nickname belongs to a host view rather than a player.
func IsObserver(nickname string) bool {
	return nickname == NicknameAdmin || nickname == NicknameDisplay
}

// Question is the currently active question. The client holds only one at a time;
// Index is echoed back on submission so the server can detect stale answers.
type Question struct {
	Index   int      `json:"index"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// LeaderboardEntry is one row of the server-ordered leaderboard. The order the
// server sent is authoritative, including its tie-breaks; clients never re-sort.
type LeaderboardEntry struct {
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
}

// RosterEntry is one joined participant, shown by the host views.
type RosterEntry struct {
	Nickname string `json:"nickname"`
}

// Session is the durable local record of one participant's (or host's) presence
// in one game. It is owned by the session store and mutated only by the phase
// reducer; every mutation is persisted as a snapshot.
type Session struct {
	ConnectionStatus ConnectionStatus `json:"connection_status"`
	GameID           string           `json:"game_id"`
	PlayerID         string           `json:"player_id"`
	Nickname         string           `json:"nickname"`
	PIN              string           `json:"pin"`
	Phase            Phase            `json:"phase"`
	CurrentQuestion  *Question        `json:"current_question,omitempty"`
	Score            int              `json:"score"`

	// HasAnsweredCurrent is keyed to AnsweredIndex so a restored snapshot cannot
	// re-enable submission for a question that was already answered.
	HasAnsweredCurrent bool  `json:"has_answered_current"`
	AnsweredIndex      int   `json:"answered_index"`
	LastAnswerCorrect  *bool `json:"last_answer_correct,omitempty"`

	LastError string `json:"last_error,omitempty"`

	Roster      []RosterEntry      `json:"roster,omitempty"`
	Leaderboard []LeaderboardEntry `json:"leaderboard,omitempty"`
}

// EmptySession is the zero state: no session, nothing persisted yet.
func EmptySession() Session {
	return Session{
		ConnectionStatus: Disconnected,
		Phase:            PhaseIdle,
		AnsweredIndex:    -1,
	}
}

// Players returns the roster without reserved observer identities.
func (s Session) Players() []RosterEntry {
	players := make([]RosterEntry, 0, len(s.Roster))
	for _, r := range s.Roster {
		if IsObserver(r.Nickname) {
			continue
		}
		players = append(players, r)
	}
	return players
}

// Ranking returns the leaderboard without reserved observer identities,
// preserving the server's ordering.
func (s Session) Ranking() []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(s.Leaderboard))
	for _, e := range s.Leaderboard {
		if IsObserver(e.Nickname) {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// GameStatus is the lifecycle state of a game on the admin boundary.
type GameStatus string

const (
	StatusPrepared GameStatus = "PREPARED"
	StatusActive   GameStatus = "ACTIVE"
	StatusFinished GameStatus = "FINISHED"
)

// Game is one quiz game as listed by the admin API.
type Game struct {
	ID     string     `json:"id"`
	PIN    string     `json:"pin"`
	Title  string     `json:"title"`
	Status GameStatus `json:"status"`
}
