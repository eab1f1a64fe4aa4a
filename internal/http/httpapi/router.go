package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// Options carries the router's cross-cutting configuration.
type Options struct {
	AllowedOrigins  []string
	RateLimitPerMin int
	MetricsHandler  http.Handler
}

// NewRouter wires the API surface.
func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	r.Get("/v1/fees/{operation}", app.FeeGet)
	r.Post("/v1/captions/options", app.CaptionOptions)
	r.Post("/v1/storage/verify", app.StorageVerify)

	r.Route("/v1/memes", func(r chi.Router) {
		r.Get("/", app.MemesList)
		r.Post("/", app.MemeCreate)
		r.Get("/{id}", app.MemeGet)
		r.Post("/{id}/like", app.MemeLike)
		r.Post("/{id}/tip", app.MemeTip)
		r.Post("/{id}/remix", app.MemeRemix)
		r.Get("/{id}/export", app.MemeExport)
	})

	return r
}
