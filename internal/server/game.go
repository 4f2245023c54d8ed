package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/victornm/quizpin/internal/channel"
	"github.com/victornm/quizpin/internal/domain"
	"github.com/victornm/quizpin/internal/errors"
)

const pointsPerCorrectAnswer = 100

// gameService owns the realtime side of a game: joins, question flow, answer
// grading and the leaderboard. Everything it broadcasts goes through the hub to
// the room identified by the game's PIN.
type gameService struct {
	db     *DB
	redis  redis.UniversalClient
	prefix string
	hub    *hub
}

func newGameService(db *DB, rdb redis.UniversalClient, prefix string, h *hub) *gameService {
	return &gameService{
		db:     db,
		redis:  rdb,
		prefix: prefix,
		hub:    h,
	}
}

func (g *gameService) leaderboardKey(pin string) string {
	return fmt.Sprintf("%s:leaderboard:%s", g.prefix, pin)
}

// handleFrame routes one inbound frame from a connection. Errors that concern
// the sender go back as an error event; everything else is logged and dropped
// so one bad frame never takes a room down.
func (g *gameService) handleFrame(ctx context.Context, c *client, f channel.Frame) {
	var err error
	switch f.Event {
	case domain.EventNameJoinGame:
		err = g.handleJoin(ctx, c, f.Data)
	case domain.EventNameStartGame:
		err = g.handleStart(ctx, f.Data)
	case domain.EventNameNextQuestion:
		err = g.handleNext(ctx, f.Data)
	case domain.EventNameSubmitAnswer:
		err = g.handleSubmit(ctx, c, f.Data)
	default:
		slog.WarnContext(ctx, "server: dropping unknown frame", "event", f.Event)
		return
	}

	if err != nil {
		e := errors.Convert(err)
		slog.WarnContext(ctx, "server: handle frame failed", "event", f.Event, "error", err)
		if e.Code != errors.CodeInternal {
			g.hub.sendEvent(c, domain.EventError{Message: e.Message})
		}
	}
}

func (g *gameService) handleJoin(ctx context.Context, c *client, data json.RawMessage) error {
	var req domain.EventJoinGame
	if err := json.Unmarshal(data, &req); err != nil {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("malformed join_game"))
	}
	if req.Nickname == "" {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("nickname is required"))
	}

	game, currentIdx, err := g.db.GameByPIN(ctx, req.PIN)
	if err != nil {
		return errors.New(errors.CodeNotFound, errors.WithMessagef("Game not found or inactive"))
	}
	if game.Status == domain.StatusFinished {
		return errors.New(errors.CodeNotFound, errors.WithMessagef("Game not found or inactive"))
	}

	p, err := g.db.JoinPlayer(ctx, game.ID, req.Nickname)
	if err != nil {
		return err
	}

	c.setIdentity(game.PIN, p.ID, p.Nickname)
	g.hub.join(game.PIN, c)

	// ZAddNX so a rejoin keeps the score the player already earned.
	if err := g.redis.ZAddNX(ctx, g.leaderboardKey(game.PIN), redis.Z{
		Score:  float64(p.Score),
		Member: p.Nickname,
	}).Err(); err != nil {
		slog.ErrorContext(ctx, "server: seed leaderboard failed", "pin", game.PIN, "error", err)
	}

	g.hub.broadcastEvent(game.PIN, domain.EventPlayerJoined{Nickname: p.Nickname, PlayerID: p.ID})
	g.hub.sendEvent(c, domain.EventJoinedSuccess{GameID: game.ID, PlayerID: p.ID})

	// A join into a running game is a rejoin: re-send the phase-defining
	// question so the newcomer converges without any event replay.
	if game.Status == domain.StatusActive && currentIdx >= 0 {
		if q, err := g.db.Question(ctx, game.ID, currentIdx); err == nil {
			g.hub.sendEvent(c, domain.EventNewQuestion{Question: q.Question})
		}
	}
	return nil
}

func (g *gameService) handleStart(ctx context.Context, data json.RawMessage) error {
	var req domain.EventStartGame
	if err := json.Unmarshal(data, &req); err != nil {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("malformed start_game"))
	}

	game, _, err := g.db.GameByPIN(ctx, req.PIN)
	if err != nil {
		return err
	}
	if err := g.db.UpdateStatus(ctx, game.ID, domain.StatusActive); err != nil {
		return err
	}

	g.hub.broadcastEvent(game.PIN, domain.EventGameStarted{})
	return g.advance(ctx, game.ID, game.PIN)
}

func (g *gameService) handleNext(ctx context.Context, data json.RawMessage) error {
	var req domain.EventNextQuestion
	if err := json.Unmarshal(data, &req); err != nil {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("malformed next_question"))
	}

	game, _, err := g.db.GameByPIN(ctx, req.PIN)
	if err != nil {
		return err
	}
	return g.advance(ctx, game.ID, game.PIN)
}

// advance moves the game to its next question, or ends it when none remain.
func (g *gameService) advance(ctx context.Context, gameID, pin string) error {
	idx, err := g.db.AdvanceQuestion(ctx, gameID)
	if err != nil {
		return err
	}

	total, err := g.db.CountQuestions(ctx, gameID)
	if err != nil {
		return err
	}

	if idx >= total {
		if err := g.db.UpdateStatus(ctx, gameID, domain.StatusFinished); err != nil {
			return err
		}
		g.hub.broadcastEvent(pin, domain.EventGameOver{})
		return nil
	}

	q, err := g.db.Question(ctx, gameID, idx)
	if err != nil {
		return err
	}
	g.hub.broadcastEvent(pin, domain.EventNewQuestion{Question: q.Question})
	return nil
}

func (g *gameService) handleSubmit(ctx context.Context, c *client, data json.RawMessage) error {
	var req domain.EventSubmitAnswer
	if err := json.Unmarshal(data, &req); err != nil {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("malformed submit_answer"))
	}

	p, err := g.db.Player(ctx, req.PlayerID)
	if err != nil {
		return err
	}
	game, currentIdx, err := g.db.GameByID(ctx, p.GameID)
	if err != nil {
		return err
	}

	// A submission for any other question than the current one is stale:
	// it raced a next_question and must not be credited to the new question.
	if req.QuestionIndex != currentIdx {
		slog.InfoContext(ctx, "server: dropping stale answer",
			"player", p.Nickname, "submitted", req.QuestionIndex, "current", currentIdx)
		return nil
	}

	if err := g.db.RecordAnswer(ctx, p.ID, req.QuestionIndex, req.AnswerIndex); err != nil {
		// First answer wins: a duplicate is dropped without touching the score.
		if errors.Convert(err).Code == errors.CodeAlreadyExists {
			return nil
		}
		return err
	}

	q, err := g.db.Question(ctx, game.ID, req.QuestionIndex)
	if err != nil {
		return err
	}

	correct := req.AnswerIndex == q.CorrectIndex
	score := p.Score
	if correct {
		score, err = g.db.AddScore(ctx, p.ID, pointsPerCorrectAnswer)
		if err != nil {
			return err
		}
	}

	g.hub.sendEvent(c, domain.EventAnswerResult{Correct: correct, Score: score})
	return g.publishLeaderboard(ctx, game.PIN, p.Nickname, score)
}

// publishLeaderboard writes the new score into the sorted set and broadcasts
// the full standings, highest first, in redis' tie order.
func (g *gameService) publishLeaderboard(ctx context.Context, pin, nickname string, score int) error {
	key := g.leaderboardKey(pin)
	if err := g.redis.ZAdd(ctx, key, redis.Z{
		Score:  float64(score),
		Member: nickname,
	}).Err(); err != nil {
		return errors.Internal(err)
	}

	standings, err := g.redis.ZRevRangeWithScores(ctx, key, 0, -1).Result()
	if err != nil {
		return errors.Internal(err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(standings))
	for _, z := range standings {
		entries = append(entries, domain.LeaderboardEntry{
			Nickname: fmt.Sprint(z.Member),
			Score:    int(z.Score),
		})
	}

	g.hub.broadcastEvent(pin, domain.EventLeaderboardUpdated{Entries: entries})
	return nil
}

// disconnect detaches a connection from its room.
func (g *gameService) disconnect(c *client) {
	g.hub.leave(c)
	close(c.send)
}
