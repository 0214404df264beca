package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/workshop-tickets/internal/api/http/handlers"
	"github.com/spec-kit/workshop-tickets/internal/observability"
	"github.com/spec-kit/workshop-tickets/internal/tenancy"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Lifecycle *handlers.LifecycleHandler
	Tickets   *handlers.TicketsHandler
	// Metrics is exposed on /metrics when set.
	Metrics *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Get("/lifecycle", cfg.Lifecycle.Table)

	tickets := app.Group("/tickets", tenancy.Middleware())
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/actions", cfg.Tickets.ListActions)
	tickets.Post("/:id/actions", tenancy.RequireActor(), cfg.Tickets.ApplyAction)
	tickets.Get("/:id/history", cfg.Tickets.ListHistory)
}
