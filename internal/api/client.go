package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/victornm/quizpin/internal/domain"
	"github.com/victornm/quizpin/internal/errors"
)

// Client consumes the quiz server's request/response boundary: game creation,
// question management and the state resync query. It never touches live game
// state; that flows over the realtime channel.
type Client struct {
	base string
	http *http.Client
}

type Config struct {
	// BaseURL of the REST API, e.g. http://localhost:8080.
	BaseURL string
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

func NewClient(c Config) *Client {
	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		base: c.BaseURL,
		http: hc,
	}
}

type CreateGameRequest struct {
	Title string `json:"title"`
}

type CreateGameResponse struct {
	PIN    string            `json:"pin"`
	GameID string            `json:"game_id"`
	Title  string            `json:"title"`
	Status domain.GameStatus `json:"status"`
}

// CreateGame allocates a new game and its PIN.
func (c *Client) CreateGame(ctx context.Context, req CreateGameRequest) (*CreateGameResponse, error) {
	var resp CreateGameResponse
	if err := c.do(ctx, http.MethodPost, "/create_game", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type AddQuestionRequest struct {
	GameID       string   `json:"game_id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

// AddQuestion appends one question to a prepared game.
func (c *Client) AddQuestion(ctx context.Context, req AddQuestionRequest) error {
	if len(req.Options) != 4 {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("a question needs exactly 4 options, got %d", len(req.Options)))
	}
	return c.do(ctx, http.MethodPost, "/add_question", req, nil)
}

// ListGames returns every game, newest first (server ordering).
func (c *Client) ListGames(ctx context.Context) ([]domain.Game, error) {
	var games []domain.Game
	if err := c.do(ctx, http.MethodGet, "/games", nil, &games); err != nil {
		return nil, err
	}
	return games, nil
}

type UpdateStatusRequest struct {
	Status domain.GameStatus `json:"status"`
}

// UpdateGameStatus moves a game between PREPARED, ACTIVE and FINISHED.
func (c *Client) UpdateGameStatus(ctx context.Context, gameID string, status domain.GameStatus) error {
	return c.do(ctx, http.MethodPut, "/game/"+gameID+"/status", UpdateStatusRequest{Status: status}, nil)
}

// GameState is the resync answer: enough to decide whether a rejoin is worth
// attempting and which question the game is on.
type GameState struct {
	PIN                  string            `json:"pin"`
	Status               domain.GameStatus `json:"status"`
	CurrentQuestionIndex int               `json:"current_question_index"`
}

// GameState asks the server what phase a game is in. The push channel replays
// nothing after a disconnect; this query is how a reloaded or reconnected
// client finds out what it missed.
func (c *Client) GameState(ctx context.Context, pin string) (*GameState, error) {
	var state GameState
	if err := c.do(ctx, http.MethodGet, "/state/"+pin, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.New(errors.CodeUnavailable,
			errors.WithMessagef("%s %s failed", method, path),
			errors.WithCause(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var remote struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&remote)
		msg := remote.Error
		if msg == "" {
			msg = remote.Message
		}
		if msg == "" {
			msg = resp.Status
		}
		return errors.New(errors.FromHTTPStatus(resp.StatusCode), errors.WithMessagef("%s", msg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}
