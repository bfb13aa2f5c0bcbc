package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/servicedesk/internal/api/http/handlers"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	KPI            *handlers.KPIHandler
	Live           *handlers.LiveHandler
	AuthMiddleware *auth.AuthMiddleware
	// Gatherer backs /metrics; nil leaves the endpoint unregistered.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	authenticated := cfg.AuthMiddleware.Handle

	tickets := app.Group("/tickets", authenticated, auth.RequireAnyRole())
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/comments", cfg.Tickets.AppendComment)
	tickets.Put("/:id/comments/:index", cfg.Tickets.EditComment)

	tickets.Put("/:id/resolution", auth.RequireResponder(), cfg.Tickets.UpdateResolution)
	tickets.Post("/:id/assignee", auth.RequireResponder(), cfg.Tickets.Assign)
	tickets.Delete("/:id/assignee", auth.RequireResponder(), cfg.Tickets.Unassign)
	tickets.Post("/:id/comments/migrate", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.MigrateComments)
	tickets.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Tickets.DeleteTicket)

	kpi := app.Group("/kpi", authenticated, auth.RequireAnyRole())
	kpi.Get("/", cfg.KPI.Report)
	kpi.Get("/trend", cfg.KPI.Trend)
	kpi.Get("/export", cfg.KPI.Export)

	app.Get("/ws/kpi", authenticated, auth.RequireAnyRole(), cfg.Live.Upgrade, cfg.Live.Stream())
}
