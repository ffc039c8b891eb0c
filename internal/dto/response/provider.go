package response

import (
	"time"

	"local-services/internal/data/entity"
)

type ProviderResponse struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	Bio          string        `json:"bio"`
	Rating       float64       `json:"rating"`
	RatingsCount int           `json:"ratings_count"`
	Services     []string      `json:"services,omitempty"`
	User         *UserResponse `json:"user,omitempty"`
	CreatedAt    *time.Time    `json:"created_at,omitempty"`
}

func ProviderToResponse(p *entity.Provider) *ProviderResponse {
	if p == nil {
		return nil
	}

	resp := &ProviderResponse{
		ID:           p.ID.String(),
		UserID:       p.UserID.String(),
		Bio:          p.Bio,
		Rating:       p.Rating,
		RatingsCount: p.RatingsCount,
	}
	if p.ServiceIDs != nil {
		resp.Services = make([]string, 0, len(p.ServiceIDs))
		for _, id := range p.ServiceIDs {
			resp.Services = append(resp.Services, id.String())
		}
	}
	if p.User != nil {
		u := UserToResponse(p.User)
		resp.User = &u
	}
	if !p.CreatedAt.IsZero() {
		createdAt := p.CreatedAt
		resp.CreatedAt = &createdAt
	}
	return resp
}
