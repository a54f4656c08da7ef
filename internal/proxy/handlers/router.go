package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pysugar/oauth-connect/internal/accounts"
	"github.com/pysugar/oauth-connect/internal/config"
	"github.com/pysugar/oauth-connect/internal/metrics"
	"github.com/pysugar/oauth-connect/internal/proxy/middleware"
	"github.com/rs/zerolog"
)

// Deps are the collaborators the router wires into its handlers.
type Deps struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Client   Unipile
	Store    accounts.Store
	Statuses StatusSource
}

// NewRouter builds the full HTTP surface.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.Config.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// UI
	r.Get("/", DashboardHandler())
	r.Get("/auth/success", AuthSuccessHandler())
	r.Get("/auth/failure", AuthFailureHandler())

	r.Get("/health", HealthHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route(config.APIPrefix, func(r chi.Router) {
		r.Post("/auth-link", AuthLinkHandler(deps.Client, deps.Config))
		r.Post("/webhook", WebhookHandler(deps.Client, deps.Store))
		r.Get("/account-status", AccountStatusHandler(deps.Statuses))
		r.Delete("/disconnect/{provider}", DisconnectHandler(deps.Client, deps.Store))
	})

	r.NotFound(NotFoundHandler())
	r.MethodNotAllowed(NotFoundHandler())
	return r
}
