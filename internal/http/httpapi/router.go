package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"gateway/internal/http/handlers"
	"gateway/internal/middleware"
)

// Options carries the cross-cutting settings of the router.
type Options struct {
	Logger         zerolog.Logger
	JWTSecret      string
	AllowedOrigins []string
	DefaultLocale  string
	CountryLookup  middleware.CountryLookup
	RateCounter    middleware.WindowCounter
	RatePerMinute  int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/", app.Root)
	r.Get("/health", app.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if opts.RateCounter != nil {
			r.Use(middleware.RateLimit(opts.RateCounter, opts.RatePerMinute, time.Minute, opts.Logger))
		}
		r.Use(middleware.AuthJWT(opts.JWTSecret))

		r.Get("/quota", app.QuotaStatus)
		r.Post("/upload-profile-pic", app.UploadProfilePic)
		r.Post("/update-profile-name", app.UpdateProfileName)
		r.Post("/contact", app.Contact)
	})

	return r
}
