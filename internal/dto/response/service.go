package response

import (
	"time"

	"local-services/internal/data/entity"
	"local-services/pkg/geo"
)

type ServiceResponse struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Category    string            `json:"category"`
	Description string            `json:"description"`
	Price       float64           `json:"price"`
	Image       string            `json:"image,omitempty"`
	Location    *geo.Point        `json:"location,omitempty"`
	DistanceKm  *float64          `json:"distance_km,omitempty"`
	Provider    *ProviderResponse `json:"provider,omitempty"`
	CreatedAt   *time.Time        `json:"created_at,omitempty"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty"`
}

func ServiceToResponse(s *entity.Service) *ServiceResponse {
	if s == nil {
		return nil
	}

	resp := &ServiceResponse{
		ID:          s.ID.String(),
		Title:       s.Title,
		Category:    s.Category,
		Description: s.Description,
		Price:       s.Price,
		Image:       s.Image,
		Location:    s.Location,
		DistanceKm:  s.DistanceKm,
		Provider:    ProviderToResponse(s.Provider),
	}
	if !s.CreatedAt.IsZero() {
		createdAt, updatedAt := s.CreatedAt, s.UpdatedAt
		resp.CreatedAt, resp.UpdatedAt = &createdAt, &updatedAt
	}
	return resp
}

func ServicesToResponse(services []*entity.Service) []*ServiceResponse {
	out := make([]*ServiceResponse, 0, len(services))
	for _, s := range services {
		out = append(out, ServiceToResponse(s))
	}
	return out
}
