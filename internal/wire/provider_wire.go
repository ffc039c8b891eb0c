package wire

import (
	"local-services/internal/adaptor"
	"local-services/internal/data/entity"
	"local-services/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireProvider(r chi.Router, providerHandler *adaptor.ProviderHandler, authn guard, log *zap.Logger) {
	// ==================== PROVIDER ROUTES ====================
	r.With(
		authn,
		middleware.RequireRole(log, entity.RoleProvider),
	).Route("/api/provider/me", func(r chi.Router) {
		r.Get("/", providerHandler.GetMe)
		r.Patch("/", providerHandler.UpdateMe)
	})
}
