package response

import (
	"time"

	"local-services/internal/data/entity"
	"local-services/pkg/geo"
)

// UserResponse never carries the password hash or pending codes.
type UserResponse struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Mobile    string      `json:"mobile,omitempty"`
	Role      entity.Role `json:"role"`
	Verified  bool        `json:"verified"`
	Location  *geo.Point  `json:"location,omitempty"`
	CreatedAt *time.Time  `json:"created_at,omitempty"`
}

func UserToResponse(user *entity.User) UserResponse {
	resp := UserResponse{
		ID:       user.ID.String(),
		Name:     user.Name,
		Email:    user.Email,
		Mobile:   user.Mobile,
		Role:     user.Role,
		Verified: user.Verified,
		Location: user.Location,
	}
	if !user.CreatedAt.IsZero() {
		createdAt := user.CreatedAt
		resp.CreatedAt = &createdAt
	}
	return resp
}

func UsersToResponse(users []*entity.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, UserToResponse(u))
	}
	return out
}
