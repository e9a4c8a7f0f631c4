package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"thumbsmith/internal/http/handlers"
	"thumbsmith/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
	)
	if app.Config != nil {
		r.Use(middleware.CORS(app.Config.CORSAllowedOrigins))
	}

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/catalog", app.Catalog)

	r.Group(func(r chi.Router) {
		if app.Config != nil {
			r.Use(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute))
		}
		r.Post("/v1/thumbnails", app.GenerateThumbnails)
		r.Post("/v1/thumbnails/jobs", app.EnqueueJob)
	})

	r.Get("/v1/thumbnails/jobs/{id}", app.JobStatus)
	r.Get("/v1/thumbnails/jobs/{id}/archive", app.JobArchive)
	r.Get("/v1/thumbnails/history", app.History)
	r.Get("/v1/stats", app.Stats)

	return r
}
