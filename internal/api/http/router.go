package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KinuGra/tosho-2509-back/internal/api/http/handlers"
	"github.com/KinuGra/tosho-2509-back/internal/auth"
	"github.com/KinuGra/tosho-2509-back/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Verification   *handlers.VerificationHandler
	Progress       *handlers.ProgressHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Status)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if registry := cfg.Metrics.Registry(); registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, auth.RequireActive(), cfg.Auth.Me)

	twofa := app.Group("/2fa")
	twofa.Post("/request", cfg.Verification.Request)
	twofa.Post("/verify", cfg.Verification.Verify)

	app.Post("/progress/complete", cfg.AuthMiddleware.Handle, auth.RequireActive(), cfg.Progress.Complete)
	app.Get("/ranking", cfg.Progress.Ranking)
}
