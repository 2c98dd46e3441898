package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"uniqbot/internal/http/handlers"
	"uniqbot/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.I18N(app.Config.DefaultLocale),
	)
	if len(app.Config.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(app.Config.AllowedOrigins))
	}
	if app.Config.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(app.Config.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)

	r.Post("/v1/assets", app.AssetUpload)

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", app.SessionCreate)
		r.Post("/{session_id}/input", app.SessionInput)
		r.Delete("/{session_id}", app.SessionCancel)
	})

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Get("/{job_id}", app.JobStatus)
		r.Get("/{job_id}/download", app.JobDownload)
	})

	return r
}
