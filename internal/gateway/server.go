package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Public — no auth required.
	r.Get("/health", g.handleHealth())
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if g.cfg.Token != "" {
			r.Use(bearerAuth(g.cfg.Token))
		}
		r.Get("/status", g.handleStatus())
		r.Route("/api", func(r chi.Router) {
			r.Post("/messages", g.handleAppendMessage())
			r.Get("/session", g.handleCurrentSession())
			r.Post("/sessions/start", g.handleStartSession())
			r.Post("/sessions/end", g.handleEndSession())
			r.Get("/context", g.handleContext())
			r.Post("/compress", g.handleCompress())
			r.Post("/profile", g.handleMergeProfile())
			r.Get("/export", g.handleExport())
			r.Post("/import", g.handleImport())
			r.Post("/reset", g.handleReset())
		})
	})

	return r
}
