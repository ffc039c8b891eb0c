package wire

import (
	"local-services/internal/adaptor"
	"local-services/internal/data/entity"
	"local-services/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler, authn guard, log *zap.Logger) {
	r.With(authn).Route("/api/bookings", func(r chi.Router) {
		// ==================== USER ROUTES ====================
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCapability(log, entity.CapBookServices))

			r.Post("/", bookingHandler.CreateBooking)
			r.Get("/me", bookingHandler.ListMine)
		})
		r.With(middleware.RequireCapability(log, entity.CapRateBookings)).
			Post("/{id}/rate", bookingHandler.RateBooking)

		// ==================== PROVIDER ROUTES ====================
		// Listing is tied to the provider profile, so this stays a role check
		r.With(middleware.RequireRole(log, entity.RoleProvider)).Get("/provider", bookingHandler.ListProvider)

		// Providers may only move their own bookings; admins may move any
		r.With(middleware.RequireCapability(log, entity.CapUpdateBookingStatus)).
			Patch("/{id}/status", bookingHandler.UpdateStatus)
	})
}
