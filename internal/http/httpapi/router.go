package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/veoreg/infinity-studio/internal/http/handlers"
	"github.com/veoreg/infinity-studio/internal/middleware"
)

// Options carries the cross-cutting router configuration.
type Options struct {
	AllowedOrigins []string
	DefaultLocale  string
	CountryLookup  middleware.CountryLookup
	RateLimit      int
	Logger         zerolog.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		middleware.RequestID,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)
	if opts.RateLimit > 0 {
		r.Use(middleware.RateLimit(opts.RateLimit, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/session", app.Session)
	r.Post("/v1/uploads", app.Upload)

	r.Route("/v1/generations", func(r chi.Router) {
		r.Post("/", app.Generate)
		r.Get("/", app.GenerationsList)
		r.Get("/{id}", app.GenerationStatus)
		r.Delete("/{id}", app.GenerationDelete)
		r.Post("/{id}/cancel", app.GenerationCancel)
	})

	return r
}
