package response

import "time"

type RegisterResponse struct {
	UserID  string `json:"user_id"`
	OTPSent bool   `json:"otp_sent"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UnverifiedResponse is the payload of a 403 login: the client re-enters verification with it.
type UnverifiedResponse struct {
	UserID string `json:"user_id"`
}
