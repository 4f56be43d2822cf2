package server

import (
	"net/http"

	"github.com/fitstack/coachd/internal/api"
	"github.com/fitstack/coachd/internal/api/handlers"
	"github.com/fitstack/coachd/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	KnowledgeHandler *handlers.KnowledgeHandler
	SearchHandler    *handlers.SearchHandler
	ContextHandler   *handlers.ContextHandler
	JobsHandler      *handlers.JobsHandler
	PipelineHandler  *handlers.PipelineHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/knowledge", func(r chi.Router) {
		r.Post("/", cfg.KnowledgeHandler.Upsert)
		r.Get("/", cfg.KnowledgeHandler.List)
		r.Get("/{id}", cfg.KnowledgeHandler.Get)
		r.Delete("/{id}", cfg.KnowledgeHandler.Delete)
	})

	r.Post("/search", cfg.SearchHandler.Search)
	r.Post("/context", cfg.ContextHandler.Build)

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", cfg.JobsHandler.Start)
		r.Get("/{id}", cfg.JobsHandler.Get)
		r.Post("/{id}/process", cfg.JobsHandler.Process)
	})

	r.Route("/pipelines", func(r chi.Router) {
		r.Post("/check", cfg.PipelineHandler.Check)
		r.Post("/{name}/run", cfg.PipelineHandler.Run)
		r.Get("/{name}/runs", cfg.PipelineHandler.Runs)
	})

	return r
}
