// Package router provides centralized API route registration.
// All HTTP routes are registered here with the shared middleware stack.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"doclens/internal/handler"
	"doclens/internal/middleware"
)

// New builds the router. metrics may be nil, in which case /metrics is not
// mounted.
func New(app *handler.App, metrics http.Handler, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", handler.HandleHealth(app))
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SecurityHeaders)
		r.Post("/process", handler.HandleProcess(app))
		r.Get("/cache/stats", handler.HandleCacheStats(app))
	})
	return r
}
