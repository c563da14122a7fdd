// Package server provides the HTTP API for linesight.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/forgeline/linesight/internal/config"
	"github.com/forgeline/linesight/internal/copilot"
	"github.com/forgeline/linesight/internal/docindex"
	"github.com/forgeline/linesight/internal/replay"
	"github.com/forgeline/linesight/internal/storage"
)

// Server is the HTTP server for the linesight API.
type Server struct {
	store    storage.Store
	engine   *copilot.Engine
	index    *docindex.Index
	replayer *replay.Replayer
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. replayer may be
// nil when no live replay is running; clearance then only updates the
// persisted state.
func NewServer(
	store storage.Store,
	engine *copilot.Engine,
	index *docindex.Index,
	replayer *replay.Replayer,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		store:    store,
		engine:   engine,
		index:    index,
		replayer: replayer,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ask", s.handleAsk)
	r.Post("/api/v1/documents", s.handleIngestDocuments)
	r.Get("/api/v1/lines/{id}/summary", s.handleSummary)
	r.Get("/api/v1/lines/{id}/defects", s.handleRecentDefects)
	r.Get("/api/v1/lines/{id}/window", s.handleWindow)
	r.Get("/api/v1/lines/{id}/escalation", s.handleEscalationState)
	r.Post("/api/v1/lines/{id}/clearance", s.handleClearance)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
