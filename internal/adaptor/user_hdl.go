package adaptor

import (
	"net/http"

	"local-services/internal/dto/request"
	"local-services/internal/usecase"
	"local-services/pkg/utils"

	"go.uber.org/zap"
)

type UserHandler struct {
	service usecase.UserService
	log     *zap.Logger
}

func NewUserHandler(service usecase.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		log:     log.With(zap.String("handler", "user")),
	}
}

// GetProfile handles GET /api/users/me
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(r.Context(), session.UserID)
	if err != nil {
		handleServiceError(w, h.log, err, "get profile")
		return
	}

	utils.ResponseSuccess(w, "Profile retrieved successfully", profile)
}

// UpdateProfile handles PATCH /api/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	var req request.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), session.UserID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update profile")
		return
	}

	utils.ResponseSuccess(w, "Profile updated successfully", profile)
}

// UpdatePassword handles PATCH /api/users/me/password
func (h *UserHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	var req request.UpdatePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.UpdatePassword(r.Context(), session.UserID, &req); err != nil {
		handleServiceError(w, h.log, err, "update password")
		return
	}

	utils.ResponseSuccess(w, "Password updated successfully", nil)
}

// DeleteProfile handles DELETE /api/users/me
func (h *UserHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteProfile(r.Context(), session.UserID); err != nil {
		handleServiceError(w, h.log, err, "delete profile")
		return
	}

	utils.ResponseSuccess(w, "Account deleted", nil)
}
