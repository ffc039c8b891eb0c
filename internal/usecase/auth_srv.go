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
	"local-services/pkg/geo"
	"local-services/pkg/mailer"
	"local-services/pkg/ratelimit"
	"local-services/pkg/token"
	"local-services/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService interface {
	Register(ctx context.Context, req *request.RegisterRequest) (*response.RegisterResponse, error)
	VerifyOTP(ctx context.Context, req *request.VerifyOTPRequest) (*response.AuthResponse, error)
	ResendOTP(ctx context.Context, req *request.ResendOTPRequest) error
	Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error)
	ForgotPassword(ctx context.Context, req *request.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req *request.ResetPasswordRequest) error
	EnsureAdmin(ctx context.Context, name, email, password string) error
}

type authService struct {
	repo          *repository.Repository // users, providers and pending codes
	tokens        *token.Manager
	mailer        mailer.Mailer
	resendLimiter ratelimit.Limiter
	forgotLimiter ratelimit.Limiter
	otp           utils.OTPConfig
	now           func() time.Time
	log           *zap.Logger
}

func NewAuthService(
	repo *repository.Repository,
	deps Deps,
	otp utils.OTPConfig,
	log *zap.Logger,
) AuthService {
	return &authService{
		repo:          repo,
		tokens:        deps.Tokens,
		mailer:        deps.Mailer,
		resendLimiter: deps.ResendLimiter,
		forgotLimiter: deps.ForgotLimiter,
		otp:           otp,
		now:           deps.Now,
		log:           log.With(zap.String("service", "auth")),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Register(ctx context.Context, req *request.RegisterRequest) (*response.RegisterResponse, error) {
	// 1. Validate input
	req.Email = normalizeEmail(req.Email)
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Register validation failed", zap.Any("errors", errs))
		return nil, &ValidationError{Fields: errs}
	}

	role := entity.RoleUser
	if req.Role != "" {
		parsed, ok := entity.ParseRole(req.Role)
		if !ok || !parsed.SelfRegistrable() {
			return nil, newValidationError("role", "Must be one of: user, provider")
		}
		role = parsed
	}

	email := req.Email

	// 2. Check email is free
	existing, err := s.repo.User.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}

	// 3. Hash password
	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("hash password: %w", err)
	}

	code, err := s.newCode(entity.PurposeEmailVerification, nil)
	if err != nil {
		return nil, err
	}

	// 4. Save user with its pending verification code
	now := s.now()
	user := &entity.User{
		Base:         entity.NewBase(now),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hashed,
		Mobile:       strings.TrimSpace(req.Mobile),
		Role:         role,
		OTP:          code,
	}
	if req.Location != nil {
		user.Location = &geo.Point{Lat: *req.Location.Lat, Lng: *req.Location.Lng}
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	// 5. Provider profile for provider sign-ups
	if role == entity.RoleProvider {
		provider := &entity.Provider{
			Base:   entity.NewBase(now),
			UserID: user.ID,
		}
		if err := s.repo.Provider.Create(ctx, provider); err != nil {
			// Rollback: remove the half-created account
			if delErr := s.repo.User.Delete(ctx, user.ID); delErr != nil {
				s.log.Error("Failed to roll back user after provider error",
					zap.Error(delErr), zap.String("user_id", user.ID.String()))
			}
			return nil, fmt.Errorf("create provider profile: %w", err)
		}
	}

	// 6. Dispatch the code. The account exists either way; the user can ask for a resend.
	sent := true
	if err := s.sendCode(ctx, user, entity.PurposeEmailVerification, code.Code); err != nil {
		s.log.Warn("Verification email not delivered",
			zap.Error(err), zap.String("user_id", user.ID.String()))
		sent = false
	}

	s.log.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(role)))

	return &response.RegisterResponse{UserID: user.ID.String(), OTPSent: sent}, nil
}

func (s *authService) VerifyOTP(ctx context.Context, req *request.VerifyOTPRequest) (*response.AuthResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	user, err := s.findUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !user.OTP.Matches(req.Code, now) {
		s.log.Warn("Verification code rejected",
			zap.String("user_id", user.ID.String()),
			zap.Bool("expired", user.OTP.Expired(now)))
		return nil, ErrInvalidOTP
	}

	// the conditional update makes the code single-use under concurrent submissions
	if err := s.repo.OTP.ConsumeVerification(ctx, user.ID, req.Code, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidOTP
		}
		return nil, fmt.Errorf("verify account: %w", err)
	}

	user.Verified = true
	user.OTP = nil

	s.log.Info("Email verified", zap.String("user_id", user.ID.String()))
	return s.session(user)
}

func (s *authService) ResendOTP(ctx context.Context, req *request.ResendOTPRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}

	user, err := s.findUser(ctx, req.UserID)
	if err != nil {
		return err
	}
	if user.Verified {
		return ErrAlreadyVerified
	}

	if !s.allow(ctx, s.resendLimiter, user.ID.String()) {
		return ErrTooManyRequests
	}

	if err := s.issueCode(ctx, user, entity.PurposeEmailVerification); err != nil {
		return err
	}

	s.log.Info("Verification code resent", zap.String("user_id", user.ID.String()))
	return nil
}

func (s *authService) Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	user, err := s.repo.User.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	// same error for unknown email and wrong password
	if user == nil || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		s.log.Warn("Invalid login attempt", zap.String("email", req.Email))
		return nil, ErrInvalidCredentials
	}

	if !user.Verified {
		if err := s.issueCode(ctx, user, entity.PurposeEmailVerification); err != nil {
			if !errors.Is(err, ErrDelivery) {
				return nil, err
			}
			s.log.Warn("Verification email not delivered on login",
				zap.Error(err), zap.String("user_id", user.ID.String()))
		}
		return nil, &UnverifiedAccountError{UserID: user.ID}
	}

	s.log.Info("User logged in", zap.String("user_id", user.ID.String()))
	return s.session(user)
}

func (s *authService) ForgotPassword(ctx context.Context, req *request.ForgotPasswordRequest) error {
	req.Email = normalizeEmail(req.Email)
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}

	email := req.Email
	if !s.allow(ctx, s.forgotLimiter, email) {
		return ErrTooManyRequests
	}

	user, err := s.repo.User.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("%w: user", ErrNotFound)
	}

	if err := s.issueCode(ctx, user, entity.PurposePasswordReset); err != nil {
		return err
	}

	s.log.Info("Password reset code sent", zap.String("user_id", user.ID.String()))
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req *request.ResetPasswordRequest) error {
	req.Email = normalizeEmail(req.Email)
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}

	user, err := s.repo.User.FindByEmail(ctx, req.Email)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}

	now := s.now()
	if user == nil {
		return ErrInvalidOTP
	}
	if !user.ResetToken.Matches(req.Code, now) {
		s.log.Warn("Reset code rejected",
			zap.String("user_id", user.ID.String()),
			zap.Bool("expired", user.ResetToken.Expired(now)))
		return ErrInvalidOTP
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.repo.OTP.ConsumeReset(ctx, user.ID, req.Code, now, hashed); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOTP
		}
		return fmt.Errorf("reset password: %w", err)
	}

	s.log.Info("Password reset", zap.String("user_id", user.ID.String()))
	return nil
}

// EnsureAdmin creates a verified admin account once. Existing accounts are left alone.
func (s *authService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil
	}

	existing, err := s.repo.User.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("find admin: %w", err)
	}
	if existing != nil {
		if existing.Role != entity.RoleAdmin {
			s.log.Warn("Bootstrap admin email belongs to a non-admin account", zap.String("email", email))
		}
		return nil
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := &entity.User{
		Base:         entity.NewBase(s.now()),
		Name:         name,
		Email:        email,
		PasswordHash: hashed,
		Role:         entity.RoleAdmin,
		Verified:     true,
	}
	if err := s.repo.User.Create(ctx, admin); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("create admin: %w", err)
	}

	s.log.Info("Admin account created", zap.String("email", email))
	return nil
}

// ==================== HELPER METHODS ====================

// findUser treats a malformed id like an unknown one
func (s *authService) findUser(ctx context.Context, rawID string) (*entity.User, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}

	user, err := s.repo.User.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	return user, nil
}

// newCode draws a code that differs from the previous one, if any
func (s *authService) newCode(purpose entity.CodePurpose, previous *entity.OneTimeCode) (*entity.OneTimeCode, error) {
	ttl := s.otp.Expiry()
	if purpose == entity.PurposePasswordReset {
		ttl = s.otp.ResetExpiry()
	}

	for {
		code, err := utils.GenerateOTP(s.otp.Length)
		if err != nil {
			s.log.Error("Failed to generate code", zap.Error(err))
			return nil, fmt.Errorf("generate code: %w", err)
		}
		if previous == nil || previous.Code != code {
			return &entity.OneTimeCode{Code: code, ExpiresAt: s.now().Add(ttl)}, nil
		}
	}
}

// issueCode replaces the pending code for purpose and emails it.
// The code is stored before sending, so a failed send leaves a valid code
// behind and the caller gets ErrDelivery.
func (s *authService) issueCode(ctx context.Context, user *entity.User, purpose entity.CodePurpose) error {
	code, err := s.newCode(purpose, user.Code(purpose))
	if err != nil {
		return err
	}

	if err := s.repo.OTP.SetCode(ctx, user.ID, purpose, *code); err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	switch purpose {
	case entity.PurposeEmailVerification:
		user.OTP = code
	case entity.PurposePasswordReset:
		user.ResetToken = code
	}

	if err := s.sendCode(ctx, user, purpose, code.Code); err != nil {
		s.log.Error("Failed to send code",
			zap.Error(err),
			zap.String("user_id", user.ID.String()),
			zap.String("purpose", string(purpose)))
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

func (s *authService) sendCode(ctx context.Context, user *entity.User, purpose entity.CodePurpose, code string) error {
	var (
		msg mailer.Message
		err error
	)
	switch purpose {
	case entity.PurposePasswordReset:
		msg, err = mailer.PasswordResetEmail(user.Name, code, s.otp.ResetExpiry())
	default:
		msg, err = mailer.VerificationEmail(user.Name, code, s.otp.Expiry())
	}
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}

	return s.mailer.Send(ctx, user.Email, msg.Subject, msg.HTML)
}

// allow fails open: a limiter outage must not lock users out
func (s *authService) allow(ctx context.Context, limiter ratelimit.Limiter, key string) bool {
	ok, err := limiter.Allow(ctx, key)
	if err != nil {
		s.log.Warn("Rate limiter unavailable", zap.Error(err))
		return true
	}
	return ok
}

func (s *authService) session(user *entity.User) (*response.AuthResponse, error) {
	raw, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.log.Error("Failed to issue token", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &response.AuthResponse{
		Token:     raw,
		ExpiresAt: expiresAt,
		User:      response.UserToResponse(user),
	}, nil
}
