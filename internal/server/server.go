// Package server exposes highlight passes over HTTP: load a document, search
// it, clear it, render or export it.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/theognis1002/linkmark/internal/config"
	"github.com/theognis1002/linkmark/internal/highlight"
	"github.com/theognis1002/linkmark/internal/page"
	"github.com/theognis1002/linkmark/internal/settings"
)

type Loader interface {
	Load(ctx context.Context, source, baseURL string) (*page.Page, error)
}

type SnapshotStore interface {
	PutSnapshot(ctx context.Context, pageURL string, html []byte) (string, error)
}

type Server struct {
	loader    Loader
	settings  settings.Store
	snapshots SnapshotStore
	docs      *registry
	defaults  highlight.Style
	maxBody   int64
	logger    *slog.Logger
}

// New wires the handlers. snapshots may be nil, in which case the snapshot
// route answers 503.
func New(loader Loader, store settings.Store, snapshots SnapshotStore, cfg config.ServerConfig, defaults highlight.Style, maxBody int64, logger *slog.Logger) *Server {
	return &Server{
		loader:    loader,
		settings:  store,
		snapshots: snapshots,
		docs:      newRegistry(cfg.MaxDocuments),
		defaults:  defaults,
		maxBody:   maxBody,
		logger:    logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", s.handleCreateDocument)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleRenderDocument)
			r.Get("/links", s.handleLinks)
			r.Delete("/", s.handleDeleteDocument)
			r.Post("/search", s.handleSearch)
			r.Post("/search/raw", s.handleSearchRequest)
			r.Post("/clear", s.handleClear)
			r.Post("/snapshot", s.handleSnapshot)
		})
	})

	r.Get("/settings", s.handleGetSettings)
	r.Put("/settings", s.handlePutSettings)
	r.Post("/slug", s.handleSlug)

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
