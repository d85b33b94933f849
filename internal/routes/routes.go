package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/mkowalczyk/authguard/internal/handlers"
	"github.com/mkowalczyk/authguard/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	adminHandler *handlers.AdminHandler,
	guard handlers.SecurityGuard,
) {
	rateLimitConfig := middleware.DefaultAuthRateLimit()

	// Public auth endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(rateLimitConfig))
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/password-reset", authHandler.ResetPassword)
	})

	// Endpoints that count as user activity for the idle watchdog
	router.Group(func(r chi.Router) {
		r.Use(middleware.Activity(guard))

		r.Post("/auth/logout", authHandler.Logout)
		r.Post("/auth/password", authHandler.ChangePassword)
		r.Get("/auth/session", authHandler.Session)

		// Security administration, signed-in users only
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(guard))
			r.Get("/admin/blocked-addresses", adminHandler.ListBlockedAddresses)
			r.Delete("/admin/blocked-addresses/{address}", adminHandler.UnblockAddress)
			r.Get("/admin/security-events", adminHandler.ListSecurityEvents)
		})
	})
}
