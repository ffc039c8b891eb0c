package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"local-services/internal/data/entity"
	"local-services/internal/data/repository"
	"local-services/internal/dto/request"
	"local-services/internal/dto/response"
	"local-services/pkg/events"
	"local-services/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	// user endpoints
	CreateBooking(ctx context.Context, caller utils.Session, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	RateBooking(ctx context.Context, caller utils.Session, bookingID string, req *request.RateBookingRequest) (*response.RateBookingResponse, error)
	ListUserBookings(ctx context.Context, userID uuid.UUID) ([]*response.BookingResponse, error)

	// provider and admin endpoints
	UpdateStatus(ctx context.Context, caller utils.Session, bookingID string, req *request.UpdateBookingStatusRequest) (*response.BookingResponse, error)
	ListProviderBookings(ctx context.Context, userID uuid.UUID) ([]*response.BookingResponse, error)
}

type bookingService struct {
	repo   *repository.Repository
	events events.Publisher
	now    func() time.Time
	log    *zap.Logger
}

func NewBookingService(repo *repository.Repository, publisher events.Publisher, now func() time.Time, log *zap.Logger) BookingService {
	return &bookingService{
		repo:   repo,
		events: publisher,
		now:    now,
		log:    log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, caller utils.Session, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	// Validate request
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, &ValidationError{Fields: errs}
	}
	if !caller.Role.Can(entity.CapBookServices) {
		return nil, ErrForbidden
	}

	date, ok := utils.ParseDate(req.Date)
	if !ok {
		return nil, newValidationError("date", "Must be a valid date")
	}

	// Service must exist; its provider is copied onto the booking
	serviceID, err := uuid.Parse(strings.TrimSpace(req.ServiceID))
	if err != nil {
		return nil, fmt.Errorf("%w: service", ErrNotFound)
	}
	service, err := s.repo.Service.FindByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("find service: %w", err)
	}
	if service == nil {
		return nil, fmt.Errorf("%w: service", ErrNotFound)
	}

	now := s.now()
	booking := &entity.Booking{
		Base:       entity.NewBase(now),
		UserID:     caller.UserID,
		ServiceID:  service.ID,
		ProviderID: service.ProviderID,
		Date:       date,
		Address:    strings.TrimSpace(req.Address),
		Status:     entity.BookingStatusScheduled,
	}

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		s.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("user_id", caller.UserID.String()),
			zap.String("service_id", service.ID.String()),
		)
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("user_id", caller.UserID.String()),
		zap.String("provider_id", booking.ProviderID.String()),
	)

	s.publish(ctx, events.BookingCreated, events.BookingCreatedEvent{
		BookingID:  booking.ID.String(),
		UserID:     booking.UserID.String(),
		ServiceID:  booking.ServiceID.String(),
		ProviderID: booking.ProviderID.String(),
		Date:       booking.Date,
		CreatedAt:  booking.CreatedAt,
	})

	booking.Service = service
	return response.BookingToResponse(booking), nil
}

// UpdateStatus moves a booking along the transition table. Providers may only
// touch bookings made against them.
func (s *bookingService) UpdateStatus(ctx context.Context, caller utils.Session, bookingID string, req *request.UpdateBookingStatusRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	next := entity.BookingStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !next.Valid() {
		return nil, newValidationError("status", "Must be one of: scheduled, in_progress, completed, cancelled")
	}

	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !caller.Role.Can(entity.CapUpdateBookingStatus) {
		return nil, ErrForbidden
	}
	if !caller.Role.Can(entity.CapBypassOwnership) {
		provider, err := s.repo.Provider.FindByUserID(ctx, caller.UserID)
		if err != nil {
			return nil, fmt.Errorf("find provider: %w", err)
		}
		if provider == nil || provider.ID != booking.ProviderID {
			s.log.Warn("Booking ownership check failed",
				zap.String("booking_id", booking.ID.String()),
				zap.String("user_id", caller.UserID.String()))
			return nil, fmt.Errorf("%w: not your booking", ErrForbidden)
		}
	}

	current := booking.Status
	if current.IsTerminal() {
		return nil, fmt.Errorf("%w: booking already %s", ErrInvalidTransition, current)
	}
	if !entity.CanTransition(current, next, caller.Role) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}

	now := s.now()
	// guarded on the current status so a concurrent change cannot be overwritten
	if err := s.repo.Booking.UpdateStatus(ctx, booking.ID, current, next, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: status changed concurrently", ErrInvalidTransition)
		}
		return nil, fmt.Errorf("update booking status: %w", err)
	}

	booking.Status = next
	booking.UpdatedAt = now

	s.log.Info("Booking status updated",
		zap.String("booking_id", booking.ID.String()),
		zap.String("from", string(current)),
		zap.String("to", string(next)),
		zap.String("role", string(caller.Role)),
	)

	s.publish(ctx, events.BookingStatusChanged, events.BookingStatusChangedEvent{
		BookingID: booking.ID.String(),
		From:      string(current),
		To:        string(next),
		ChangedBy: caller.UserID.String(),
		ChangedAt: now,
	})

	return response.BookingToResponse(booking), nil
}

// RateBooking is not idempotent: every call adds one more rating to the provider mean.
func (s *bookingService) RateBooking(ctx context.Context, caller utils.Session, bookingID string, req *request.RateBookingRequest) (*response.RateBookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != caller.UserID {
		return nil, fmt.Errorf("%w: not your booking", ErrForbidden)
	}

	now := s.now()
	review := strings.TrimSpace(req.Review)
	aggregate, err := s.repo.Booking.Rate(ctx, booking.ID, booking.ProviderID, req.Rating, review, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: booking", ErrNotFound)
		}
		return nil, fmt.Errorf("rate booking: %w", err)
	}

	rating := req.Rating
	booking.Rating = &rating
	booking.Review = &review
	booking.UpdatedAt = now

	s.log.Info("Booking rated",
		zap.String("booking_id", booking.ID.String()),
		zap.Int("rating", rating),
		zap.Float64("provider_rating", aggregate.Rating),
		zap.Int("ratings_count", aggregate.RatingsCount),
	)

	s.publish(ctx, events.BookingRated, events.BookingRatedEvent{
		BookingID:    booking.ID.String(),
		ProviderID:   booking.ProviderID.String(),
		Rating:       rating,
		NewMean:      aggregate.Rating,
		RatingsCount: aggregate.RatingsCount,
		RatedAt:      now,
	})

	return &response.RateBookingResponse{
		Booking:        response.BookingToResponse(booking),
		ProviderRating: aggregate.Rating,
		RatingsCount:   aggregate.RatingsCount,
	}, nil
}

func (s *bookingService) ListUserBookings(ctx context.Context, userID uuid.UUID) ([]*response.BookingResponse, error) {
	bookings, err := s.repo.Booking.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user bookings: %w", err)
	}

	// the caller is the booking user; no need to echo them back
	for _, b := range bookings {
		b.User = nil
	}
	return response.BookingsToResponse(bookings), nil
}

func (s *bookingService) ListProviderBookings(ctx context.Context, userID uuid.UUID) ([]*response.BookingResponse, error) {
	provider, err := s.repo.Provider.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find provider: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: provider profile", ErrNotFound)
	}

	bookings, err := s.repo.Booking.FindByProviderID(ctx, provider.ID)
	if err != nil {
		return nil, fmt.Errorf("list provider bookings: %w", err)
	}

	for _, b := range bookings {
		b.Provider = nil
	}
	return response.BookingsToResponse(bookings), nil
}

// ==================== HELPER METHODS ====================

func (s *bookingService) load(ctx context.Context, rawID string) (*entity.Booking, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return nil, fmt.Errorf("%w: booking", ErrNotFound)
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking", ErrNotFound)
	}
	return booking, nil
}

// publish never fails the caller; the booking is already committed
func (s *bookingService) publish(ctx context.Context, subject string, payload any) {
	if err := s.events.Publish(ctx, subject, payload); err != nil {
		s.log.Warn("Failed to publish event", zap.Error(err), zap.String("subject", subject))
	}
}
