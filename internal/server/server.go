// Package server provides the HTTP classification API for miwake.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/miwake/internal/classify"
	"github.com/hyperjump/miwake/internal/config"
	"github.com/hyperjump/miwake/internal/extract"
	"github.com/hyperjump/miwake/internal/history"
	"github.com/hyperjump/miwake/internal/store"
)

// Server is the HTTP server for the miwake API. The reference store is held
// as an immutable snapshot behind an atomic pointer: handlers capture the
// snapshot once per request and search it lock-free, while the store
// watcher swaps in reloaded snapshots.
type Server struct {
	classifier *classify.Classifier
	extractors *extract.Registry
	history    *history.Log // optional; nil disables the audit log
	cfg        *config.Config
	logger     *zap.Logger
	server     *http.Server
	store      atomic.Pointer[store.Store]
}

// NewServer creates a server with the given dependencies. hist may be nil.
func NewServer(
	classifier *classify.Classifier,
	extractors *extract.Registry,
	hist *history.Log,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	s := &Server{
		classifier: classifier,
		extractors: extractors,
		history:    hist,
		cfg:        cfg,
		logger:     logger,
	}
	s.store.Store(store.New(nil))
	return s
}

// SetStore swaps in a new store snapshot. In-flight requests keep searching
// the snapshot they captured.
func (s *Server) SetStore(st *store.Store) {
	s.store.Store(st)
}

// Store returns the current store snapshot.
func (s *Server) Store() *store.Store {
	return s.store.Load()
}

// Handler builds the chi router for the API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/classify", s.handleClassify)
	r.Get("/api/v1/history", s.handleHistory)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
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
