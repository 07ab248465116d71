package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/gatekeeper/internal/auth"
	"github.com/BradenHooton/gatekeeper/internal/handlers"
)

// RegisterRoutes registers all application routes. throttle guards the
// public account forms by client address.
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	tokenManager *auth.TokenManager,
	throttle func(http.Handler) http.Handler,
	health http.HandlerFunc,
) {
	router.Get("/health", health)

	router.Route("/users", func(r chi.Router) {
		// Public account forms
		r.Group(func(r chi.Router) {
			r.Use(throttle)
			r.Post("/register", authHandler.Register)
			r.Post("/confirm-email", authHandler.ConfirmEmail)
			r.Post("/login", authHandler.Login)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password/{code}", authHandler.ResetPassword)
		})

		// Bearer token required
		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware(tokenManager))
			r.Get("/profile", userHandler.Profile)
		})
	})
}
