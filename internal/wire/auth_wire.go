package wire

import (
	"local-services/internal/adaptor"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAuth(r chi.Router, authHandler *adaptor.AuthHandler, log *zap.Logger) {
	// ==================== PUBLIC ROUTES ====================
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/verify", authHandler.VerifyOTP)
		r.Post("/resend-otp", authHandler.ResendOTP)
		r.Post("/login", authHandler.Login)
		r.Post("/forgot", authHandler.ForgotPassword)
		r.Post("/reset", authHandler.ResetPassword)
	})
}
