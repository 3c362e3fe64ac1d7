package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nsing-labs/ragbridge/internal/assistant"
	"github.com/nsing-labs/ragbridge/internal/config"
	"github.com/nsing-labs/ragbridge/internal/db"
	"github.com/nsing-labs/ragbridge/internal/ragflow"
	"github.com/nsing-labs/ragbridge/internal/render"
)

// Config holds gateway configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
	AllowAll       bool // allow all CORS origins (dev mode)
}

// Server is the widget-facing gateway. It hides the RAGFlow key from
// browsers: widgets talk to this server, the server talks to the
// agent.
type Server struct {
	cfg        Config
	appCfg     *config.Config
	source     assistant.Source
	tokens     *ragflow.TokenSource
	renderer   *render.Renderer
	store      *db.ConversationStore
	router     chi.Router
	httpServer *http.Server
}

// New creates a gateway with all dependencies. The store may be nil;
// transcripts are then not persisted.
func New(cfg Config, appCfg *config.Config, source assistant.Source, store *db.ConversationStore) *Server {
	s := &Server{
		cfg:      cfg,
		appCfg:   appCfg,
		source:   source,
		tokens:   ragflow.NewTokenSource(appCfg.APIKey, appCfg.TokenEndpoint, nil),
		renderer: render.New(),
		store:    store,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(3 * time.Minute))

	// CORS
	allowed := s.cfg.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	corsOpts := cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
		corsOpts.AllowCredentials = false
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/api/ragflow/config", s.handleConfig)
	r.Get("/api/ragflow/token", s.handleToken)
	r.Post("/api/chat", s.handleChat)
	r.Get("/api/chat/history", s.handleHistory)
	r.Get("/ws/chat", s.handleWebSocket)

	return r
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	log.Printf("ragbridge gateway listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
