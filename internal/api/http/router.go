package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fieldservice/internal/api/http/handlers"
	"github.com/fieldops/fieldservice/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Payments       *handlers.PaymentsHandler
	AuthMiddleware *auth.AuthMiddleware
	Policy         *auth.Policy
}

// RegisterRoutes wires HTTP routes. Route guards reject callers whose role
// can never succeed; the services repeat every check.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	perm := func(p auth.Permission) fiber.Handler { return auth.RequirePermission(cfg.Policy, p) }
	elevated := auth.RequireMinimumLevel(cfg.Policy, auth.ElevatedLevel)
	authn := cfg.AuthMiddleware.Handle

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	app.Post("/auth/login", cfg.Users.Login)
	app.Get("/auth/me", authn, cfg.Users.Me)

	users := app.Group("/users", authn)
	users.Post("/", perm(auth.PermUsersManage), cfg.Users.CreateUser)
	users.Get("/", cfg.Users.ListUsers)

	tickets := app.Group("/tickets", authn, perm(auth.PermTicketsView))
	tickets.Post("/", perm(auth.PermTicketsCreate), cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", perm(auth.PermTicketsEdit), elevated, cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", perm(auth.PermTicketsDelete), elevated, cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/assign", perm(auth.PermTicketsAssign), cfg.Tickets.AssignTechnician)
	tickets.Post("/:id/status", perm(auth.PermTicketsChangeStatus), cfg.Tickets.ChangeStatus)
	tickets.Get("/:id/history", cfg.Tickets.History)

	payments := app.Group("/payments", authn, perm(auth.PermPaymentsView))
	payments.Get("/", cfg.Payments.ListPayments)
	payments.Get("/report", cfg.Payments.Report)
	payments.Get("/:id", cfg.Payments.GetPayment)
	payments.Post("/:id/process", perm(auth.PermPaymentsProcess), elevated, cfg.Payments.ProcessPayment)
}
