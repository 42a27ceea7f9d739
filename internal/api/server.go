package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/docmap/internal/config"
	"github.com/dgallion1/docmap/internal/session"
	"github.com/dgallion1/docmap/internal/stats"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docmap.
type Server struct {
	router   chi.Router
	sessions *session.Store
	stats    *stats.Ops
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(sessions *session.Store, ops *stats.Ops, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		sessions: sessions,
		stats:    ops,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.DocmapAPIKey, s.log))

		r.Post("/api/schema/fields", s.handleSchemaFields)
		r.Post("/api/document/nodes", s.handleDocumentNodes)
		r.Post("/api/mapping/guess", s.handleGuess)
		r.Post("/api/extract", s.handleExtract)
		r.Post("/api/inject", s.handleInject)

		r.Route("/api/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/{sessionID}", s.handleGetSession)
			r.Delete("/{sessionID}", s.handleDeleteSession)
			r.Post("/{sessionID}/assign", s.handleAssign)
			r.Post("/{sessionID}/unassign", s.handleUnassign)
			r.Post("/{sessionID}/select", s.handleSelect)
			r.Post("/{sessionID}/guess", s.handleSessionGuess)
			r.Post("/{sessionID}/values", s.handleSetValue)
			r.Get("/{sessionID}/mapping", s.handleSessionMapping)
		})

		r.Get("/api/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}
