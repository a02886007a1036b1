package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/http/handlers"
	"github.com/spec-kit/triage-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Triage         *handlers.TriageHandler
	Notifications  *handlers.NotificationsHandler
	Ops            *handlers.OpsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)
	tickets.Post("/:id/status", auth.RequireManage(), cfg.Tickets.ChangeStatus)
	tickets.Post("/:id/suggestions", cfg.Triage.RunSuggestion)
	tickets.Post("/:id/suggestions/approve", auth.RequireManage(), cfg.Triage.ApproveSuggestion)
	tickets.Post("/:id/suggestions/discard", auth.RequireManage(), cfg.Triage.DiscardSuggestion)

	policies := app.Group("/policies", cfg.AuthMiddleware.Handle, auth.RequireManage())
	policies.Put("", cfg.Triage.SetPolicy)

	notifications := app.Group("/notifications", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	notifications.Get("", cfg.Notifications.List)
	notifications.Post("/dispatch", auth.RequireManage(), cfg.Notifications.Dispatch)
	notifications.Post("/dead-letters/retry", auth.RequireManage(), cfg.Notifications.RetryDeadLetters)
	notifications.Post("/dead-letters/:id/retry", auth.RequireManage(), cfg.Notifications.RequeueDeadLetter)

	ops := app.Group("/ops", cfg.AuthMiddleware.Handle, auth.RequirePlatformOperator())
	ops.Get("/dead-letters", cfg.Ops.DeadLetters)
	ops.Get("/metrics", cfg.Ops.Metrics)
}
