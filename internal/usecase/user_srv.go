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
	"local-services/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req *request.UpdateProfileRequest) (*response.UserResponse, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, req *request.UpdatePasswordRequest) error
	DeleteProfile(ctx context.Context, userID uuid.UUID) error
}

type userService struct {
	repo *repository.Repository
	now  func() time.Time
	log  *zap.Logger
}

func NewUserService(repo *repository.Repository, now func() time.Time, log *zap.Logger) UserService {
	return &userService{
		repo: repo,
		now:  now,
		log:  log.With(zap.String("service", "user")),
	}
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *request.UpdateProfileRequest) (*response.UserResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Update profile validation failed", zap.Any("errors", errs))
		return nil, &ValidationError{Fields: errs}
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Only update provided fields
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Mobile != nil {
		user.Mobile = strings.TrimSpace(*req.Mobile)
	}
	if req.Location != nil {
		user.Location = &geo.Point{Lat: *req.Location.Lat, Lng: *req.Location.Lng}
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email != user.Email {
			other, err := s.repo.User.FindByEmail(ctx, email)
			if err != nil {
				return nil, fmt.Errorf("check email: %w", err)
			}
			if other != nil && other.ID != user.ID {
				return nil, fmt.Errorf("%w: email already in use", ErrConflict)
			}
			user.Email = email
		}
	}
	user.UpdatedAt = s.now()

	if err := s.repo.User.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email already in use", ErrConflict)
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.log.Info("Profile updated", zap.String("user_id", user.ID.String()))

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (s *userService) UpdatePassword(ctx context.Context, userID uuid.UUID, req *request.UpdatePasswordRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}

	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}

	if !utils.CheckPasswordHash(req.OldPassword, user.PasswordHash) {
		s.log.Warn("Wrong current password", zap.String("user_id", user.ID.String()))
		return ErrInvalidCredentials
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = hashed
	user.UpdatedAt = s.now()
	if err := s.repo.User.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.log.Info("Password changed", zap.String("user_id", user.ID.String()))
	return nil
}

func (s *userService) DeleteProfile(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.User.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: user", ErrNotFound)
		}
		return fmt.Errorf("delete profile: %w", err)
	}

	s.log.Info("Account deleted", zap.String("user_id", userID.String()))
	return nil
}

func (s *userService) load(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.repo.User.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	return user, nil
}
