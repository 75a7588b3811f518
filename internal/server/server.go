// Package server provides the HTTP API for the shop search service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/config"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/search"
	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/storage"
)

// ReindexFunc rebuilds the index from the current corpus and installs the
// result into the engine.
type ReindexFunc func(ctx context.Context) error

// Server is the HTTP server for the search API.
type Server struct {
	engine  *search.Engine
	storage storage.Storage
	reindex ReindexFunc
	cfg     *config.Config
	logger  *zap.Logger
	server  *http.Server

	reindexing chan struct{} // 1-slot semaphore; full while a rebuild runs
}

// NewServer creates a server with the given dependencies. reindex may be nil,
// in which case the reindex endpoint reports not implemented.
func NewServer(
	engine *search.Engine,
	store storage.Storage,
	reindex ReindexFunc,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:     engine,
		storage:    store,
		reindex:    reindex,
		cfg:        cfg,
		logger:     logger,
		reindexing: make(chan struct{}, 1),
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/status", s.handleStatus)
	r.Post("/api/v1/reindex", s.handleReindex)
	r.Post("/api/v1/documents", s.handleUpsertDocument)
	r.Get("/api/v1/documents/{id}", s.handleGetDocument)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
