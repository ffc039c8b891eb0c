package request

type UpdateProfileRequest struct {
	Name     *string          `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Email    *string          `json:"email,omitempty" validate:"omitempty,email"`
	Mobile   *string          `json:"mobile,omitempty" validate:"omitempty,min=6,max=20"`
	Location *LocationRequest `json:"location,omitempty" validate:"omitempty"`
}

type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}
