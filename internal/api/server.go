package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dgallion1/docspeak/internal/config"
	"github.com/dgallion1/docspeak/internal/pipeline"
	"github.com/dgallion1/docspeak/internal/playback"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for docspeak.
type Server struct {
	router  chi.Router
	orch    *pipeline.Orchestrator
	library *pipeline.Library
	engine  *playback.Engine
	log     *slog.Logger
	cfg     config.Config

	// ctx outlives requests; playback sessions are started under it.
	ctx context.Context
}

// NewServer creates and configures the HTTP server. Playback started through
// the API runs until it finishes, is stopped, or ctx is canceled.
func NewServer(ctx context.Context, orch *pipeline.Orchestrator, engine *playback.Engine, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orch:    orch,
		library: orch.Library(),
		engine:  engine,
		log:     log,
		cfg:     cfg,
		ctx:     ctx,
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

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/documents", s.handleUpload)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)

		r.Get("/api/documents", s.handleListDocuments)
		r.Route("/api/documents/{docID}", func(r chi.Router) {
			r.Get("/", s.handleGetDocument)
			r.Delete("/", s.handleDeleteDocument)
			r.Get("/toc", s.handleTOC)
			r.Get("/sections/{sectionID}", s.handleSection)
			r.Get("/progress", s.handleGetProgress)
			r.Put("/progress", s.handleSetProgress)
		})

		r.Get("/api/playback", s.handlePlaybackStatus)
		r.Post("/api/playback/start", s.handlePlaybackStart)
		r.Post("/api/playback/pause", s.handlePlaybackPause)
		r.Post("/api/playback/resume", s.handlePlaybackResume)
		r.Post("/api/playback/stop", s.handlePlaybackStop)
		r.Get("/api/playback/events", s.handlePlaybackEvents)
		r.Get("/api/voices", s.handleVoices)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"speech_supported": s.engine.Supported(),
		"documents":        s.library.Len(),
		"queue_depth":      s.orch.QueueDepth(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
