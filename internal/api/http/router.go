package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-workflow/internal/api/http/handlers"
	"github.com/spec-kit/ticket-workflow/internal/auth"
	"github.com/spec-kit/ticket-workflow/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Comments       *handlers.CommentsHandler
	Attachments    *handlers.AttachmentsHandler
	Ratings        *handlers.RatingHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/signup", cfg.Auth.SignUp)
	authGroup.Post("/signin", cfg.Auth.SignIn)

	tickets := api.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("/my-tickets", cfg.Tickets.MyTickets)
	tickets.Get("/assigned", auth.RequireRole(domain.RoleAgent, domain.RoleAdmin), cfg.Tickets.AssignedTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Put("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Put("/:id/assign", cfg.Tickets.AssignTicket)
	tickets.Get("/:id/history", cfg.Tickets.History)

	tickets.Get("/:id/comments", cfg.Comments.ListComments)
	tickets.Post("/:id/comments", cfg.Comments.AddComment)

	tickets.Get("/:id/attachments", cfg.Attachments.ListAttachments)
	tickets.Post("/:id/attachments", cfg.Attachments.Upload)
	tickets.Get("/:id/attachments/:attachmentId/download", cfg.Attachments.Download)
	tickets.Delete("/:id/attachments/:attachmentId", cfg.Attachments.DeleteAttachment)

	tickets.Get("/:id/rating", cfg.Ratings.GetRating)
	tickets.Post("/:id/rating", cfg.Ratings.Rate)

	admin := api.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Post("/users", cfg.Admin.CreateUser)
	admin.Get("/users/:id", cfg.Admin.GetUser)
	admin.Put("/users/:id/role", cfg.Admin.ChangeRole)
	admin.Put("/users/:id/toggle-status", cfg.Admin.ToggleActive)
	admin.Delete("/users/:id", cfg.Admin.DeleteUser)
	admin.Get("/tickets", cfg.Tickets.AllTickets)
	admin.Get("/dashboard/stats", cfg.Admin.Dashboard)
	admin.Get("/support-agents", cfg.Admin.SupportAgents)
}
