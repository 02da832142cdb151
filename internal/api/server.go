package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/scholarlab/datastet/internal/classifier"
	"github.com/scholarlab/datastet/internal/config"
	"github.com/scholarlab/datastet/internal/lexicon"
	"github.com/scholarlab/datastet/internal/pipeline"
)

// Server is the HTTP API server for datastet.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	classifier   *classifier.Client
	lex          *lexicon.Lexicon
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, cl *classifier.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		classifier:   cl,
		lex:          lexicon.Default(),
		log:          log,
		cfg:          cfg,
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
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/annotate", s.handleAnnotate)
		r.Get("/api/annotate/{jobID}/status", s.handleAnnotateStatus)
		r.Get("/api/annotate/{jobID}/result", s.handleAnnotateResult)

		r.Post("/api/classify", s.handleClassify)
		r.Get("/api/lexicon/check", s.handleLexiconCheck)

		r.Get("/api/documents", s.handleListRuns)
		r.Get("/api/documents/{runID}", s.handleGetRun)
		r.Delete("/api/documents/{runID}", s.handleDeleteRun)

		r.Get("/api/stats/classifier", s.handleClassifierStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
