package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires all public endpoints.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/mask", h.handleMask)
		r.Post("/decide/explain", h.handleExplain)
		r.Post("/decrypt", h.handleDecrypt)

		r.Get("/policies", h.handleListOverrides)
		r.Post("/policies", h.handleUpsertOverride)

		r.Get("/config", h.handleGetConfig)
		r.Post("/config", h.handleUpdateConfig)

		r.Get("/audit", h.handleListAudit)
	})
	return r
}
