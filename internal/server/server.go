package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/studystack/campusrag/internal/corpus"
	"github.com/studystack/campusrag/internal/indexer"
	"github.com/studystack/campusrag/internal/manifest"
	"github.com/studystack/campusrag/internal/retriever"
	"github.com/studystack/campusrag/internal/vectordb"
)

// Config holds server configuration.
type Config struct {
	Addr     string
	AllowAll bool // allow all CORS origins (dev mode)
}

// Server exposes the retrieval engine over HTTP: querying, document
// upload, corpus reindexing and index stats. It carries no chat or LLM
// layer; responses stop at retrieved passages plus sources.
type Server struct {
	cfg        Config
	retriever  *retriever.Retriever
	pipeline   *indexer.Pipeline
	manifest   *manifest.Store
	store      vectordb.Store
	loader     *corpus.Loader
	hub        *progressHub
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all dependencies. loader may be nil when no
// data directory is configured; the reindex endpoint then rejects
// requests.
func New(cfg Config, ret *retriever.Retriever, pipe *indexer.Pipeline, man *manifest.Store, store vectordb.Store, loader *corpus.Loader) *Server {
	s := &Server{
		cfg:       cfg,
		retriever: ret,
		pipeline:  pipe,
		manifest:  man,
		store:     store,
		loader:    loader,
		hub:       newProgressHub(),
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Post("/query", s.handleQuery)
			r.Get("/documents", s.handleListDocuments)
			r.Post("/documents", s.handleIndexDocument)
			r.Delete("/documents/{id}", s.handleRemoveDocument)
			r.Get("/stats", s.handleStats)
		})

		// A full reindex may outlive any sensible request timeout, and the
		// websocket connection is long-lived. Neither gets a deadline.
		r.Post("/reindex", s.handleReindex)
		r.Get("/ws/indexing", s.handleIndexingSocket)
	})

	return r
}

// Router returns the chi router, which tests mount directly.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("campusrag server listening on %s", s.cfg.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
