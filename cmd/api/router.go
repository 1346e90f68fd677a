package main

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/dataroom/dataroom/internal/handler"
	"github.com/dataroom/dataroom/internal/metrics"
	"github.com/dataroom/dataroom/internal/middleware"
)

// routerDeps holds everything the route table needs.
type routerDeps struct {
	Logger   *slog.Logger
	Recorder metrics.Recorder

	Health    *handler.HealthHandler
	Metrics   *handler.MetricsHandler
	Auth      *handler.AuthHandler
	Drive     *handler.DriveHandler
	Datarooms *handler.DataroomHandler
	Files     *handler.FileHandler

	AuthMiddleware middleware.AuthConfig
	UserRateLimit  middleware.RateLimitConfig
	IPRateLimit    middleware.RateLimitConfig

	AllowedOrigins []string
	MaxBodySize    int64
	IsDevelopment  bool
	DebugRoutes    bool
}

// newRouter configures the chi router with all routes and middleware.
func newRouter(d routerDeps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Metrics(d.Recorder))
	r.Use(middleware.Recoverer(d.Logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: d.IsDevelopment}))
	r.Use(middleware.CORS(d.AllowedOrigins))
	r.Use(middleware.MaxBodySize(d.MaxBodySize))

	// Health and metrics (no auth required)
	r.Get("/health", d.Health.Health)
	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
	r.Get("/metrics", d.Metrics.Metrics)

	requireAuth := middleware.Auth(d.AuthMiddleware)
	limitUser := middleware.RateLimitUser(d.UserRateLimit)

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitIP(d.IPRateLimit))
			r.Get("/google/start", d.Auth.Start)
			r.Get("/google/callback", d.Auth.Callback)
		})

		if d.DebugRoutes {
			r.Get("/debug", d.Auth.Debug)
		}

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, limitUser)
			r.Get("/me", d.Auth.Me)
			r.Post("/logout", d.Auth.Logout)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(requireAuth, limitUser)

		r.Get("/drive/files", d.Drive.ListFiles)

		r.Route("/datarooms", func(r chi.Router) {
			r.Get("/", d.Datarooms.List)
			r.Post("/", d.Datarooms.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(middleware.ValidateUUIDParam("id", "Dataroom not found"))
				r.Get("/", d.Datarooms.Get)
				r.Put("/", d.Datarooms.Update)
				r.Delete("/", d.Datarooms.Delete)
				r.Get("/files", d.Datarooms.ListFiles)
			})
		})

		r.Route("/files", func(r chi.Router) {
			r.Post("/import", d.Files.Import)

			r.Route("/{id}", func(r chi.Router) {
				r.Use(middleware.ValidateUUIDParam("id", "File not found"))
				r.Get("/", d.Files.Get)
				r.Get("/download", d.Files.Download)
				r.Delete("/", d.Files.Delete)
			})
		})
	})

	// 404 and 405 handlers
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	return r
}
