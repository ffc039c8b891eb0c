package adaptor

import (
	"net/http"

	"local-services/internal/dto/request"
	"local-services/internal/usecase"
	"local-services/pkg/utils"

	"go.uber.org/zap"
)

type ProviderHandler struct {
	service usecase.ProviderService
	log     *zap.Logger
}

func NewProviderHandler(service usecase.ProviderService, log *zap.Logger) *ProviderHandler {
	return &ProviderHandler{
		service: service,
		log:     log.With(zap.String("handler", "provider")),
	}
}

// GetMe handles GET /api/provider/me
func (h *ProviderHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	provider, err := h.service.GetMe(r.Context(), session.UserID)
	if err != nil {
		handleServiceError(w, h.log, err, "get provider profile")
		return
	}

	utils.ResponseSuccess(w, "success", provider)
}

// UpdateMe handles PATCH /api/provider/me
func (h *ProviderHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	var req request.UpdateProviderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	provider, err := h.service.UpdateMe(r.Context(), session.UserID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update provider profile")
		return
	}

	utils.ResponseSuccess(w, "Provider profile updated", provider)
}
