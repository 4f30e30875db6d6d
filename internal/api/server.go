package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/znorris/claude-code-api/internal/chat"
	"github.com/znorris/claude-code-api/internal/claude"
	"github.com/znorris/claude-code-api/internal/config"
	"github.com/znorris/claude-code-api/internal/middleware"
	"github.com/znorris/claude-code-api/internal/store"
)

type Server struct {
	Router http.Handler
}

func NewServer(cfg config.Config, conn *sql.DB, logger zerolog.Logger) *Server {
	st := store.New(conn)

	runner := claude.NewRunner(cfg.ClaudeBin, cfg.ClaudeTimeout, logger)
	svc := chat.NewService(st, claude.NewClient(runner), claude.NewImageResolver(), cfg.SessionTTL, logger)
	svc.UseLegacyInput(cfg.ClaudeLegacyInput)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recover(logger))
	r.Use(middleware.AccessLog(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Claude Code API Server"})
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/models", ListModels())
		r.Post("/chat/completions", ChatCompletions(svc, logger))
	})

	return &Server{Router: r}
}
