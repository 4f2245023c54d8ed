package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/quizpin/internal/telemetry"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Redis struct {
		// Addrs empty means no external redis: an embedded instance is
		// started in-process, enough for a single-node game night.
		Addrs  []string
		Pass   string
		Prefix string
	}

	SQLite struct {
		Path string
	}
}

type Server struct {
	c Config

	embedded *miniredis.Miniredis

	infra struct {
		redis redis.UniversalClient
	}

	db   *DB
	hub  *hub
	game *gameService

	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initSQLite(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	addrs := s.c.Redis.Addrs
	if len(addrs) == 0 {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start embedded: %w", err)
		}
		s.embedded = mr
		addrs = []string{mr.Addr()}
		slog.InfoContext(ctx, fmt.Sprintf("redis: no address configured, embedded instance on %s", mr.Addr()))
	}

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    addrs,
		Password: s.c.Redis.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return err
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return err
	}

	s.infra.redis = r
	return nil
}

func (s *Server) initSQLite() error {
	path := s.c.SQLite.Path
	if path == "" {
		path = "quizpin.db"
	}

	db, err := OpenDB(path)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *Server) initService() {
	s.hub = newHub()
	s.game = newGameService(s.db, s.infra.redis, s.c.Redis.Prefix, s.hub)
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	s.registerRoutes(e)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

// Handler exposes the HTTP surface without binding a port, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) Start() {
	ctx := context.TODO()

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	if err := s.infra.redis.Close(); err != nil {
		slog.ErrorContext(ctx, "server: close redis failed", "error", err)
	}
	if s.embedded != nil {
		s.embedded.Close()
	}
	if err := s.db.Close(); err != nil {
		slog.ErrorContext(ctx, "server: close sqlite failed", "error", err)
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
