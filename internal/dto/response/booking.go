package response

import (
	"time"

	"local-services/internal/data/entity"
)

type BookingResponse struct {
	ID         string               `json:"id"`
	UserID     string               `json:"user_id"`
	ServiceID  string               `json:"service_id"`
	ProviderID string               `json:"provider_id"`
	Date       time.Time            `json:"date"`
	Address    string               `json:"address"`
	Status     entity.BookingStatus `json:"status"`
	Rating     *int                 `json:"rating,omitempty"`
	Review     *string              `json:"review,omitempty"`
	User       *UserResponse        `json:"user,omitempty"`
	Service    *ServiceResponse     `json:"service,omitempty"`
	Provider   *ProviderResponse    `json:"provider,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

type RateBookingResponse struct {
	Booking        *BookingResponse `json:"booking"`
	ProviderRating float64          `json:"provider_rating"`
	RatingsCount   int              `json:"ratings_count"`
}

func BookingToResponse(b *entity.Booking) *BookingResponse {
	resp := &BookingResponse{
		ID:         b.ID.String(),
		UserID:     b.UserID.String(),
		ServiceID:  b.ServiceID.String(),
		ProviderID: b.ProviderID.String(),
		Date:       b.Date,
		Address:    b.Address,
		Status:     b.Status,
		Rating:     b.Rating,
		Review:     b.Review,
		Service:    ServiceToResponse(b.Service),
		Provider:   ProviderToResponse(b.Provider),
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
	if b.User != nil {
		u := UserToResponse(b.User)
		resp.User = &u
	}
	return resp
}

func BookingsToResponse(bookings []*entity.Booking) []*BookingResponse {
	out := make([]*BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, BookingToResponse(b))
	}
	return out
}
