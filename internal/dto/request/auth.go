package request

type LocationRequest struct {
	Lat *float64 `json:"lat" validate:"required,latitude"`
	Lng *float64 `json:"lng" validate:"required,longitude"`
}

type RegisterRequest struct {
	Name     string           `json:"name" validate:"required,min=2,max=100"`
	Email    string           `json:"email" validate:"required,email"`
	Password string           `json:"password" validate:"required,min=6,max=72"`
	Mobile   string           `json:"mobile" validate:"required,min=6,max=20"`
	Role     string           `json:"role,omitempty" validate:"omitempty,oneof=user provider"`
	Location *LocationRequest `json:"location,omitempty" validate:"omitempty"`
}

// UserID is not validated as a UUID here: an unknown or malformed id is reported as not found
type VerifyOTPRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Code   string `json:"code" validate:"required,numeric"`
}

type ResendOTPRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}
