package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// NewRouter builds and returns the Chi router with all routes configured.
// Health and metrics are unauthenticated; location and weather routes require bearer auth.
// Rate limiting is applied globally: 60 requests per minute per IP.
func NewRouter(handlers *Handlers, token string, store pinger, metrics http.Handler, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httprate.LimitByIP(60, time.Minute))

	r.Get("/api/v1/health", HealthHandlerFunc(store, log))
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(token))
		r.Get("/api/v1/location", handlers.GetLocation)
		r.Put("/api/v1/location", handlers.SetLocation)
		r.Post("/api/v1/location/acquire", handlers.AcquireLocation)
		r.Post("/api/v1/fixes", handlers.ReportFix)
		r.Get("/api/v1/weather", handlers.GetWeather)
		r.Post("/api/v1/weather/refresh", handlers.RefreshWeather)
	})

	return r
}
