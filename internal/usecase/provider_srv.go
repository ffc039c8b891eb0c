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
	"local-services/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ProviderService interface {
	GetMe(ctx context.Context, userID uuid.UUID) (*response.ProviderResponse, error)
	UpdateMe(ctx context.Context, userID uuid.UUID, req *request.UpdateProviderRequest) (*response.ProviderResponse, error)
}

type providerService struct {
	repo *repository.Repository
	now  func() time.Time
	log  *zap.Logger
}

func NewProviderService(repo *repository.Repository, now func() time.Time, log *zap.Logger) ProviderService {
	return &providerService{
		repo: repo,
		now:  now,
		log:  log.With(zap.String("service", "provider")),
	}
}

func (s *providerService) GetMe(ctx context.Context, userID uuid.UUID) (*response.ProviderResponse, error) {
	provider, err := s.findByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return response.ProviderToResponse(provider), nil
}

func (s *providerService) UpdateMe(ctx context.Context, userID uuid.UUID, req *request.UpdateProviderRequest) (*response.ProviderResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	provider, err := s.findByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	bio := strings.TrimSpace(req.Bio)
	if err := s.repo.Provider.UpdateBio(ctx, provider.ID, bio, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: provider profile", ErrNotFound)
		}
		return nil, fmt.Errorf("update provider: %w", err)
	}

	provider.Bio = bio
	provider.UpdatedAt = now

	s.log.Info("Provider profile updated", zap.String("provider_id", provider.ID.String()))
	return response.ProviderToResponse(provider), nil
}

func (s *providerService) findByUser(ctx context.Context, userID uuid.UUID) (*entity.Provider, error) {
	provider, err := s.repo.Provider.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find provider: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: provider profile", ErrNotFound)
	}
	return provider, nil
}
