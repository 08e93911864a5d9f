package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/relaydesk/ticket-relay/internal/api/http/handlers"
	"github.com/relaydesk/ticket-relay/internal/auth"
	"github.com/relaydesk/ticket-relay/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Staff          *handlers.StaffHandler
	Metrics        *handlers.MetricsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)

	api.Get("/tickets", auth.RequireStaffRole(), cfg.Tickets.ListTickets)
	api.Get("/tickets/:id", auth.RequireStaffRole(), cfg.Tickets.GetTicket)

	api.Get("/staff", auth.RequireStaffRole(), cfg.Staff.ListStaff)
	api.Put("/staff/:slackId", auth.RequireStaffRole(domain.StaffRoleAdmin), cfg.Staff.UpsertStaff)

	api.Get("/metrics", auth.RequireStaffRole(domain.StaffRoleTeamLead, domain.StaffRoleAdmin), cfg.Metrics.Snapshot)
}
