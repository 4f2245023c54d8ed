package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/victornm/quizpin/internal/api"
	"github.com/victornm/quizpin/internal/channel"
	"github.com/victornm/quizpin/internal/domain"
	"github.com/victornm/quizpin/internal/errors"
)

func (s *Server) registerRoutes(r gin.IRouter) {
	r.POST("/create_game", s.handleCreateGame)
	r.GET("/games", s.handleListGames)
	r.PUT("/game/:id/status", s.handleUpdateStatus)
	r.GET("/state/:pin", s.handleGameState)
	r.POST("/add_question", s.handleAddQuestion)
	r.GET("/ws", s.handleWS)
}

func (s *Server) handleCreateGame(c *gin.Context) {
	var req api.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("malformed body"), errors.WithCause(err)))
		return
	}
	if req.Title == "" {
		abortWithError(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("title is required")))
		return
	}

	g, err := s.db.CreateGame(c.Request.Context(), req.Title)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, api.CreateGameResponse{
		PIN:    g.PIN,
		GameID: g.ID,
		Title:  g.Title,
		Status: g.Status,
	})
}

func (s *Server) handleListGames(c *gin.Context) {
	games, err := s.db.ListGames(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	if games == nil {
		games = []domain.Game{}
	}
	c.JSON(http.StatusOK, games)
}

func (s *Server) handleUpdateStatus(c *gin.Context) {
	var req api.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("malformed body"), errors.WithCause(err)))
		return
	}

	switch req.Status {
	case domain.StatusPrepared, domain.StatusActive, domain.StatusFinished:
	default:
		abortWithError(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("unknown status %q", req.Status)))
		return
	}

	if err := s.db.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "status updated"})
}

// handleGameState is the resync query: the realtime channel replays nothing
// after a disconnect, so reconnecting clients ask here which question the game
// is on before rejoining the room.
func (s *Server) handleGameState(c *gin.Context) {
	g, idx, err := s.db.GameByPIN(c.Request.Context(), c.Param("pin"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.GameState{
		PIN:                  g.PIN,
		Status:               g.Status,
		CurrentQuestionIndex: idx,
	})
}

func (s *Server) handleAddQuestion(c *gin.Context) {
	var req api.AddQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("malformed body"), errors.WithCause(err)))
		return
	}
	if len(req.Options) != 4 {
		abortWithError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("a question needs exactly 4 options, got %d", len(req.Options))))
		return
	}
	if req.CorrectIndex < 0 || req.CorrectIndex >= len(req.Options) {
		abortWithError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("correct_index %d out of range", req.CorrectIndex)))
		return
	}

	idx, err := s.db.AddQuestion(c.Request.Context(), req.GameID, req.Text, req.Options, req.CorrectIndex)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"index": idx})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The join PIN is the admission check; the HTTP origin is not.
	CheckOrigin: func(*http.Request) bool { return true },
}

func (s *Server) handleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	cl := newClient(conn)
	go cl.writePump()

	ctx := context.WithoutCancel(c.Request.Context())
	defer func() {
		s.game.disconnect(cl)
		_ = conn.Close()
	}()

	for {
		var f channel.Frame
		if err := conn.ReadJSON(&f); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.InfoContext(ctx, "server: connection closed", "error", err)
			}
			return
		}
		s.game.handleFrame(ctx, cl, f)
	}
}

func abortWithError(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "server: request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{"error": e.Message})
}
