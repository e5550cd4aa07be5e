package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parley-hq/parley/internal/api"
	"github.com/parley-hq/parley/internal/api/handlers"
	"github.com/parley-hq/parley/internal/api/middleware"
)

type RouterConfig struct {
	KnowledgeHandler *handlers.KnowledgeHandler
	ContextHandler   *handlers.ContextHandler
	ToolsHandler     *handlers.ToolsHandler
	ArchiveHandler   *handlers.ArchiveHandler
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
		r.Post("/", cfg.KnowledgeHandler.Create)
		r.Get("/{id}", cfg.KnowledgeHandler.Get)
		r.Get("/{id}/similar", cfg.KnowledgeHandler.Similar)
	})

	r.Post("/search", cfg.ContextHandler.Search)
	r.Post("/context", cfg.ContextHandler.BuildContext)

	r.Route("/tools", func(r chi.Router) {
		r.Get("/", cfg.ToolsHandler.List)
		r.Post("/execute", cfg.ToolsHandler.Execute)
	})

	r.Route("/meetings/{meetingID}/transcript", func(r chi.Router) {
		r.Post("/upload-url", cfg.ArchiveHandler.UploadURL)
		r.Get("/", cfg.ArchiveHandler.DownloadURL)
	})

	return r
}
