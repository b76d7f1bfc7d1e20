package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"gateway/internal/metrics"
	appmw "gateway/internal/middleware"
)

// RateLimit carries the per-client token-bucket settings applied ahead
// of every route.
type RateLimit struct {
	RequestsPerSecond float64
	Burst             int
}

// Router builds the chi router for every spec.md §4.8 route, plus an
// optional /metrics endpoint when metricsEnabled is set.
func Router(h *Handler, metricsEnabled bool, allowedOrigins []string, rateLimit RateLimit) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(appmw.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Range", "Range-Unit", "Content-Type"},
		ExposedHeaders: []string{"Content-Range", "Range-Unit"},
		MaxAge:         300,
	}))
	r.Use(appmw.RateLimiter(appmw.RateLimitConfig{
		RequestsPerSecond: rateLimit.RequestsPerSecond,
		Burst:             rateLimit.Burst,
	}))

	r.Get("/health", h.Health)

	r.Route("/api/resources/{id}", func(r chi.Router) {
		r.Get("/", h.Resource)
		r.Get("/profile/", h.Profile)
		r.Get("/data/", h.Data)
		r.Get("/data/csv/", h.DataCSV)
		r.Get("/data/json/", h.DataJSON)
		r.Get("/swagger/", h.Swagger)
	})

	r.Get("/api/aggregation-exceptions/", h.AggregationExceptions)

	if handler := metrics.Handler(metricsEnabled); handler != nil {
		r.Handle("/metrics", handler)
	}

	return r
}
