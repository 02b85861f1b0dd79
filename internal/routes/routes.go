package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/example/licenseportal/internal/auth"
	"github.com/example/licenseportal/internal/handlers"
	"github.com/example/licenseportal/internal/metrics"
	"github.com/example/licenseportal/internal/middleware"
	"github.com/example/licenseportal/internal/models"
	"github.com/example/licenseportal/internal/store"
)

// Deps are the services the HTTP routes call into.
type Deps struct {
	Auth      *auth.Service
	Store     store.AccountStore
	JWTSecret string
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Deps) {
	authHandler := handlers.NewAuthHandler(deps.Auth)
	resetHandler := handlers.NewPasswordResetHandler(deps.Auth)
	adminHandler := handlers.NewAdminHandler(deps.Store)

	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api")
	api.Get("/health", handlers.Health)

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/verify-otp", authHandler.VerifyOTP)
	authGroup.Post("/resend-otp", authHandler.ResendOTP)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/forgot-password", resetHandler.ForgotPassword)
	authGroup.Post("/verify-reset-otp", resetHandler.VerifyResetOTP)
	authGroup.Post("/reset-password", resetHandler.ResetPassword)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(deps.JWTSecret))
	protected.Get("/auth/me", authHandler.Me)

	admin := protected.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	admin.Get("/accounts", adminHandler.ListAccounts)
}
