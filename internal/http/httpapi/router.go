package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tenqz/videosos/internal/http/handlers"
	"github.com/tenqz/videosos/internal/infra"
	custommw "github.com/tenqz/videosos/internal/middleware"
)

// NewRouter assembles the HTTP API.
func NewRouter(app *handlers.App, cfg *infra.Config) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		custommw.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		custommw.CORS(cfg.AllowedOrigins),
		custommw.Logger(app.Logger),
	)

	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/projects/{project_id}", func(r chi.Router) {
		r.With(custommw.RateLimit(cfg.RateLimitPerMin, time.Minute)).Post("/jobs", app.SubmitJob)
		r.Get("/media", app.ListProjectMedia)
		r.Get("/media/archive", app.ArchiveProjectMedia)
	})
	r.Get("/v1/media/{id}", app.GetMedia)

	return r
}
