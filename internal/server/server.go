package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/haskel/pacer/internal/config"
	"github.com/haskel/pacer/internal/eventstore"
	"github.com/haskel/pacer/internal/loop"
	"github.com/haskel/pacer/internal/monitor"
	"github.com/haskel/pacer/internal/storage"
)

// EventStore is the persisted audit log read by the events and stats routes.
type EventStore interface {
	List(ctx context.Context, userID string, limit int) ([]loop.Event, error)
	Count(ctx context.Context) (int, error)
	Rewards(ctx context.Context) ([]eventstore.RewardSummary, error)
}

// Deps are the components the API serves. Only Loop is required.
type Deps struct {
	Loop       *loop.Loop
	Storage    *storage.Storage
	Events     EventStore
	Aggregator *monitor.Aggregator
}

type Server struct {
	httpServer *http.Server
	deps       Deps
	config     *config.Config
	logger     *slog.Logger
	version    string
	startedAt  time.Time
}

func New(cfg *config.Config, deps Deps, logger *slog.Logger, version string) *Server {
	s := &Server{
		deps:      deps,
		config:    cfg,
		logger:    logger,
		version:   version,
		startedAt: time.Now(),
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root handler with every middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	s.logger.Info("server starting",
		"addr", s.httpServer.Addr,
	)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
