package wire

import (
	"local-services/internal/adaptor"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// wireUser configures the caller's own profile routes, open to every role
func wireUser(r chi.Router, userHandler *adaptor.UserHandler, authn guard, log *zap.Logger) {
	// ==================== PROTECTED ROUTES ====================
	r.With(authn).Route("/api/users/me", func(r chi.Router) {
		r.Get("/", userHandler.GetProfile)
		r.Patch("/", userHandler.UpdateProfile)
		r.Delete("/", userHandler.DeleteProfile)
		r.Patch("/password", userHandler.UpdatePassword)
	})
}
