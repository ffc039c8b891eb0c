package wire

import (
	"local-services/internal/adaptor"
	"local-services/internal/data/entity"
	"local-services/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// wireAdmin configures the admin console routes
func wireAdmin(r chi.Router, adminHandler *adaptor.AdminHandler, authn guard, log *zap.Logger) {
	// ==================== ADMIN ROUTES ====================
	// Require both authentication AND moderation rights
	r.With(
		authn,
		middleware.RequireCapability(log, entity.CapModerate),
	).Route("/api/admin", func(r chi.Router) {
		r.Get("/users", adminHandler.ListUsers) // GET /api/admin/users?page=1&per_page=10
		r.Get("/users/{id}", adminHandler.GetUser)
		r.Delete("/users/{id}", adminHandler.DeleteUser)

		r.Get("/services", adminHandler.ListServices)
		r.Delete("/service/{id}", adminHandler.DeleteService)

		r.Get("/bookings", adminHandler.ListBookings)
		r.Get("/bookings/export", adminHandler.ExportBookings)
	})
}
