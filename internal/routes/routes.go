package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/saasforge/saasforge/internal/auth"
	"github.com/saasforge/saasforge/internal/handlers"
	"github.com/saasforge/saasforge/internal/middleware"
	"github.com/saasforge/saasforge/internal/repositories"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	billingHandler *handlers.BillingHandler,
	tokenManager *auth.TokenManager,
	userRepo *repositories.UserRepository,
) {
	// Rate limiting config for unauthenticated auth endpoints
	rateLimitConfig := middleware.DefaultAuthRateLimit()
	rateLimited := middleware.RateLimitByIP(rateLimitConfig)

	// Public routes
	router.With(rateLimited).Post("/auth/register", authHandler.Register)
	router.With(rateLimited).Post("/auth/login", authHandler.Login)
	router.With(rateLimited).Post("/auth/request-reset-password", authHandler.RequestPasswordReset)
	router.With(rateLimited).Post("/auth/reset-password", authHandler.ResetPassword)
	router.With(rateLimited).Get("/auth/verify-reset-password-token", authHandler.VerifyResetToken)
	router.Post("/auth/logout", authHandler.Logout)

	// Webhook endpoint authenticates via the provider signature, not a bearer
	// token
	router.Post("/stripe/webhook", billingHandler.Webhook)

	// The 2FA verification endpoint accepts the interim two-factor token
	router.With(auth.TwoFactorMiddleware(tokenManager)).
		Post("/auth/verify-2fa", authHandler.VerifyTwoFactor)

	// Protected routes - full access token required
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))

		r.Get("/auth", authHandler.GetAuthenticatedUser)
		r.Post("/auth/enable-2fa", authHandler.EnableTwoFactor)
		r.Post("/auth/disable-2fa", authHandler.DisableTwoFactor)

		r.Get("/users/me", userHandler.Me)
		r.Get("/users/search-users", userHandler.Search)
		r.With(auth.RequireSelf).Patch("/users/{id}", userHandler.Update)
		r.With(auth.RequireSelf).Put("/users/{id}/change-password", userHandler.ChangePassword)

		r.Post("/stripe/create-checkout-session", billingHandler.CreateCheckoutSession)
		r.Get("/stripe/billing-portal", billingHandler.CreateBillingPortalSession)

		// Admin-only routes
		r.With(auth.RequireAdmin(userRepo)).Get("/users", userHandler.List)
	})
}
