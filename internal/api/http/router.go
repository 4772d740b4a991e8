package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/shopbot/internal/api/http/handlers"
	"github.com/spec-kit/shopbot/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Orders         *handlers.OrdersHandler
	Redemptions    *handlers.RedemptionsHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	ops := app.Group("/ops")
	ops.Post("/login", cfg.Auth.Login)

	protected := ops.Group("", cfg.AuthMiddleware.Handle, auth.RequireOperator())
	protected.Get("/orders/:id", cfg.Orders.Get)
	protected.Get("/redemptions", cfg.Redemptions.List)
	protected.Get("/tickets", cfg.Tickets.List)
}
