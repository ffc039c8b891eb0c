package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"local-services/internal/dto/response"
	"local-services/internal/usecase"
	"local-services/pkg/storage"
	"local-services/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Auth     *AuthHandler
	User     *UserHandler
	Service  *ServiceHandler
	Booking  *BookingHandler
	Provider *ProviderHandler
	Admin    *AdminHandler
}

func NewHandler(service *usecase.Service, config *utils.Config, log *zap.Logger) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(service.Auth, log),
		User:     NewUserHandler(service.User, log),
		Service:  NewServiceHandler(service.Catalog, config.App.MaxUploadMB, log),
		Booking:  NewBookingHandler(service.Booking, log),
		Provider: NewProviderHandler(service.Provider, log),
		Admin:    NewAdminHandler(service.Admin, log),
	}
}

// decodeJSON writes the 400 itself and reports whether decoding worked
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

func sessionFrom(w http.ResponseWriter, r *http.Request) (utils.Session, bool) {
	session, ok := utils.GetSession(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
	}
	return session, ok
}

// handleServiceError maps usecase errors to HTTP responses. Unexpected errors
// are logged and never echoed to the client.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var (
		validation *usecase.ValidationError
		unverified *usecase.UnverifiedAccountError
	)

	switch {
	case errors.As(err, &validation):
		log.Warn(operation+" validation failed", zap.Any("errors", validation.Fields))
		utils.ResponseBadRequest(w, "Validation failed", validation.Fields)

	case errors.As(err, &unverified):
		log.Info(operation+" blocked - account not verified", zap.String("user_id", unverified.UserID.String()))
		utils.ResponseForbiddenWithData(w, "Account not verified. A new code has been sent to your email.",
			response.UnverifiedResponse{UserID: unverified.UserID.String()})

	case errors.Is(err, usecase.ErrValidation),
		errors.Is(err, usecase.ErrInvalidOTP),
		errors.Is(err, usecase.ErrAlreadyVerified):
		log.Warn(operation+" failed - bad request", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrInvalidCredentials),
		errors.Is(err, usecase.ErrUnauthenticated):
		log.Warn(operation+" failed - unauthenticated", zap.Error(err))
		utils.ResponseUnauthorized(w, err.Error())

	case errors.Is(err, usecase.ErrForbidden):
		log.Warn(operation+" failed - forbidden", zap.Error(err))
		utils.ResponseForbidden(w, err.Error())

	case errors.Is(err, usecase.ErrNotFound):
		log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrConflict):
		log.Warn(operation+" failed - conflict", zap.Error(err))
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, usecase.ErrInvalidTransition):
		log.Warn(operation+" failed - invalid transition", zap.Error(err))
		utils.ResponseUnprocessable(w, err.Error())

	case errors.Is(err, usecase.ErrTooManyRequests):
		log.Warn(operation+" failed - rate limited", zap.Error(err))
		utils.ResponseTooManyRequests(w, "Too many requests, try again later")

	case errors.Is(err, usecase.ErrDelivery):
		log.Error(operation+" failed - email delivery", zap.Error(err))
		utils.ResponseBadGateway(w, "Could not send the email, try again later")

	case errors.Is(err, storage.ErrDisabled):
		log.Warn(operation+" failed - image storage disabled", zap.Error(err))
		utils.ResponseUnprocessable(w, "Image uploads are not available")

	default:
		log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
