package wire

import (
	"local-services/internal/adaptor"
	"local-services/internal/data/entity"
	"local-services/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireService(r chi.Router, serviceHandler *adaptor.ServiceHandler, authn guard, log *zap.Logger) {
	r.Route("/api/services", func(r chi.Router) {
		// ==================== PUBLIC ROUTES ====================
		r.Get("/", serviceHandler.ListServices)   // GET /api/services?lat=&lng=&radius=&category=
		r.Get("/{id}", serviceHandler.GetService) // GET /api/services/{id}

		// ==================== PROVIDER / ADMIN ROUTES ====================
		// Ownership is checked by the catalog service
		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Use(middleware.RequireCapability(log, entity.CapManageServices))

			r.Post("/", serviceHandler.CreateService)
			r.Patch("/{id}", serviceHandler.UpdateService)
			r.Delete("/{id}", serviceHandler.DeleteService)
		})
	})
}
