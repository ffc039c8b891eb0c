package adaptor

import (
	"net/http"

	"local-services/internal/dto/request"
	"local-services/internal/usecase"
	"local-services/pkg/utils"

	"go.uber.org/zap"
)

type AuthHandler struct {
	service usecase.AuthService
	log     *zap.Logger
}

func NewAuthHandler(service usecase.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		log:     log.With(zap.String("handler", "auth")),
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Register(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "register")
		return
	}

	message := "Registration successful. Check your email for the verification code."
	if !resp.OTPSent {
		message = "Registration successful, but the verification email could not be sent. Request a new code."
	}
	utils.ResponseCreated(w, message, resp)
}

// VerifyOTP handles POST /api/auth/verify
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req request.VerifyOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.VerifyOTP(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "verify OTP")
		return
	}

	utils.ResponseSuccess(w, "Email verified successfully", resp)
}

// ResendOTP handles POST /api/auth/resend-otp
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req request.ResendOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ResendOTP(r.Context(), &req); err != nil {
		handleServiceError(w, h.log, err, "resend OTP")
		return
	}

	utils.ResponseSuccess(w, "A new verification code has been sent", nil)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "login")
		return
	}

	utils.ResponseSuccess(w, "Login successful", resp)
}

// ForgotPassword handles POST /api/auth/forgot
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req request.ForgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), &req); err != nil {
		handleServiceError(w, h.log, err, "forgot password")
		return
	}

	utils.ResponseSuccess(w, "Password reset code sent", nil)
}

// ResetPassword handles POST /api/auth/reset
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req request.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), &req); err != nil {
		handleServiceError(w, h.log, err, "reset password")
		return
	}

	utils.ResponseSuccess(w, "Password has been reset", nil)
}
