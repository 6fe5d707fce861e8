package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/slotwatch/internal/delivery/http/handler"
	"github.com/user/slotwatch/internal/delivery/http/middleware"
)

func New(h *handler.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/stream", h.HandleStream)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(30 * time.Second))
			r.Get("/health", h.HandleHealthCheck)
			r.Get("/targets", h.HandleListTargets)
			r.Get("/targets/{name}", h.HandleGetTarget)
		})
	})

	return r
}
