package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/praveenrathi4/complain-app/internal/api/http/handlers"
	"github.com/praveenrathi4/complain-app/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Complaints     *handlers.ComplaintsHandler
	Auth           *handlers.AuthHandler
	Staff          *handlers.StaffHandler
	WhatsApp       *handlers.WhatsAppHandler
	Uploads        *handlers.UploadsHandler
	AuthMiddleware *auth.AuthMiddleware
	// UploadsPath is where stored attachments are served; defaults to /uploads.
	UploadsPath string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api")
	api.Get("/health", cfg.Health.Live)

	protect := cfg.AuthMiddleware.Handle

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/verify-email", cfg.Auth.VerifyEmail)
	authGroup.Post("/resend-verification", cfg.Auth.ResendVerification)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/forgot-password", cfg.Auth.ForgotPassword)
	authGroup.Post("/reset-password", cfg.Auth.ResetPassword)
	authGroup.Get("/profile", protect, cfg.Auth.Profile)
	authGroup.Put("/profile", protect, cfg.Auth.UpdateProfile)
	authGroup.Put("/change-password", protect, cfg.Auth.ChangePassword)

	complaints := api.Group("/complaints", protect)
	complaints.Post("/", cfg.Complaints.Create)
	complaints.Get("/", cfg.Complaints.List)
	complaints.Get("/stats/dashboard", cfg.Complaints.Dashboard)
	complaints.Get("/:id", cfg.Complaints.Get)
	complaints.Put("/:id/status", cfg.Complaints.UpdateStatus)
	complaints.Post("/:id/comments", cfg.Complaints.AddComment)
	complaints.Post("/:id/rating", cfg.Complaints.Rate)
	complaints.Put("/:id/assign", cfg.Complaints.Assign)

	users := api.Group("/users", protect)
	users.Get("/staff", cfg.Staff.ListAssignable)
	users.Put("/:id/active", cfg.Staff.SetActive)

	wa := api.Group("/whatsapp")
	wa.Get("/webhook", cfg.WhatsApp.Verify)
	wa.Post("/webhook", cfg.WhatsApp.Webhook)
	wa.Get("/config", cfg.WhatsApp.Config)

	if cfg.Uploads != nil {
		path := cfg.UploadsPath
		if path == "" {
			path = "/uploads"
		}
		app.Get(path+"/:name", cfg.Uploads.Get)
	}
}
