package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/appeal-service/internal/api/http/handlers"
	"github.com/spec-kit/appeal-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Appeals        *handlers.AppealsHandler
	Admins         *handlers.AdminsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Requester-facing endpoints are
// open; the admin console sits behind bearer auth.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/admins/register", cfg.Admins.Register)
	authGroup.Post("/admins/login", cfg.Admins.Login)

	appeals := app.Group("/appeals")
	appeals.Post("", cfg.Appeals.CreateAppeal)
	appeals.Get("/:id", cfg.Appeals.GetAppeal)
	appeals.Post("/:id/messages", cfg.Appeals.AddMessage)
	appeals.Post("/:id/messages/read", cfg.Appeals.MarkMessagesRead)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/appeals", cfg.Appeals.ListAppeals)
	admin.Get("/appeals/:id", cfg.Appeals.GetAppeal)
	admin.Post("/appeals/:id/messages", cfg.Appeals.AddMessage)
	admin.Post("/appeals/:id/messages/read", cfg.Appeals.MarkMessagesRead)
	admin.Patch("/appeals/:id/priority", cfg.Appeals.UpdatePriority)
	admin.Patch("/appeals/:id/status", cfg.Appeals.ChangeStatus)
	admin.Post("/appeals/:id/close", cfg.Appeals.CloseAppeal)
	admin.Post("/appeals/:id/assign", cfg.Appeals.Assign)
	admin.Post("/appeals/:id/reassign", cfg.Appeals.Reassign)
	admin.Get("/appeals/:id/history", cfg.Appeals.ListHistory)

	admin.Put("/me/availability", cfg.Admins.SetAvailability)
	admin.Put("/admins/:id/expertise", cfg.Admins.SetExpertise)
	admin.Get("/admins/:id/expertise", cfg.Admins.ListExpertise)
	admin.Get("/categories/:category/admins", cfg.Admins.CategoryExperts)
	admin.Get("/categories/:category/expertise", cfg.Admins.CategoryLeaderboard)
	admin.Get("/categories/:category/best-admin", cfg.Admins.BestAdmin)
	admin.Get("/workload", cfg.Admins.WorkloadStats)
	admin.Post("/escalations/run", cfg.Admins.RunEscalationSweep)
}
