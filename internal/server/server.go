// Package server provides the HTTP surface: HTML views and the JSON API.
package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/issuelens/issuelens/internal/config"
	"github.com/issuelens/issuelens/internal/ingest"
	"github.com/issuelens/issuelens/internal/search"
	"github.com/issuelens/issuelens/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server serves the document listing, search views, and the JSON API.
type Server struct {
	store     store.Store
	search    *search.Service
	ingest    *ingest.Pipeline
	config    *config.Config
	logger    *zap.Logger
	templates *template.Template
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	st store.Store,
	svc *search.Service,
	pipeline *ingest.Pipeline,
	cfg *config.Config,
	logger *zap.Logger,
) (*Server, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Server{
		store:     st,
		search:    svc,
		ingest:    pipeline,
		config:    cfg,
		logger:    logger,
		templates: templates,
	}, nil
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleIndex)
	r.Post("/search", s.handleSearchPage)
	r.Get("/embeddings", s.handleEmbeddings)
	r.Get("/api/documents", s.handleListDocuments)
	r.Post("/api/documents", s.handleSubmitDocument)
	r.Get("/api/search", s.handleSearch)
	r.Get("/health", s.handleHealth)

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
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
