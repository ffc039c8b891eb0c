package adaptor

import (
	"net/http"

	"local-services/internal/dto/request"
	"local-services/internal/usecase"
	"local-services/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

// CreateBooking handles POST /api/bookings (user)
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	var req request.CreateBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), session, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create booking")
		return
	}

	utils.ResponseCreated(w, "Booking created successfully", booking)
}

// ListMine handles GET /api/bookings/me (user)
func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	bookings, err := h.service.ListUserBookings(r.Context(), session.UserID)
	if err != nil {
		handleServiceError(w, h.log, err, "list user bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// ListProvider handles GET /api/bookings/provider (provider)
func (h *BookingHandler) ListProvider(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	bookings, err := h.service.ListProviderBookings(r.Context(), session.UserID)
	if err != nil {
		handleServiceError(w, h.log, err, "list provider bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// UpdateStatus handles PATCH /api/bookings/{id}/status (provider or admin)
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	var req request.UpdateBookingStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.service.UpdateStatus(r.Context(), session, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update booking status")
		return
	}

	utils.ResponseSuccess(w, "Booking status updated", booking)
}

// RateBooking handles POST /api/bookings/{id}/rate (user)
func (h *BookingHandler) RateBooking(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	var req request.RateBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rated, err := h.service.RateBooking(r.Context(), session, chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "rate booking")
		return
	}

	utils.ResponseSuccess(w, "Rating submitted", rated)
}
