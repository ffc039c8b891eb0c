package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"local-services/internal/data/entity"
	"local-services/internal/data/repository"
	"local-services/internal/dto/request"
	"local-services/internal/dto/response"
	"local-services/pkg/geo"
	"local-services/pkg/storage"
	"local-services/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const imageCleanupTimeout = 30 * time.Second

type CatalogService interface {
	CreateService(ctx context.Context, caller utils.Session, req *request.CreateServiceRequest, image *request.ImageFile) (*response.ServiceResponse, error)
	UpdateService(ctx context.Context, caller utils.Session, serviceID string, req *request.UpdateServiceRequest, image *request.ImageFile) (*response.ServiceResponse, error)
	DeleteService(ctx context.Context, caller utils.Session, serviceID string) error
	ListServices(ctx context.Context, req *request.ListServicesRequest) ([]*response.ServiceResponse, error)
	GetService(ctx context.Context, serviceID string) (*response.ServiceResponse, error)
	// Drain waits for background image deletions or until ctx is done.
	Drain(ctx context.Context) error
}

type catalogService struct {
	repo    *repository.Repository
	images  storage.ImageStore
	geo     utils.GeoConfig
	now     func() time.Time
	log     *zap.Logger
	cleanup sync.WaitGroup // in-flight image deletions
}

func NewCatalogService(
	repo *repository.Repository,
	images storage.ImageStore,
	geoConfig utils.GeoConfig,
	now func() time.Time,
	log *zap.Logger,
) CatalogService {
	return &catalogService{
		repo:   repo,
		images: images,
		geo:    geoConfig,
		now:    now,
		log:    log.With(zap.String("service", "catalog")),
	}
}

func (s *catalogService) CreateService(ctx context.Context, caller utils.Session, req *request.CreateServiceRequest, image *request.ImageFile) (*response.ServiceResponse, error) {
	// 1. Validate input
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create service validation failed", zap.Any("errors", errs))
		return nil, &ValidationError{Fields: errs}
	}
	location, err := pairPoint(req.Lat, req.Lng)
	if err != nil {
		return nil, err
	}

	// 2. Resolve the owning provider
	provider, err := s.ownerFor(ctx, caller, req.ProviderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	service := &entity.Service{
		Base:        entity.NewBase(now),
		ProviderID:  provider.ID,
		Title:       strings.TrimSpace(req.Title),
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		Price:       *req.Price,
		Location:    location,
	}

	// 3. Upload image (optional)
	if image != nil {
		uploaded, err := s.images.Upload(ctx, image.File, image.Filename)
		if err != nil {
			s.log.Error("Failed to upload service image", zap.Error(err))
			return nil, fmt.Errorf("upload image: %w", err)
		}
		service.Image = uploaded.URL
		service.ImagePublicID = uploaded.PublicID
	}

	// 4. Save
	if err := s.repo.Service.Create(ctx, service); err != nil {
		// Rollback: drop the orphaned upload
		s.deleteImage(service.ImagePublicID)
		return nil, fmt.Errorf("create service: %w", err)
	}

	s.log.Info("Service created",
		zap.String("service_id", service.ID.String()),
		zap.String("provider_id", provider.ID.String()),
		zap.String("category", service.Category))

	return s.reload(ctx, service)
}

func (s *catalogService) UpdateService(ctx context.Context, caller utils.Session, serviceID string, req *request.UpdateServiceRequest, image *request.ImageFile) (*response.ServiceResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Update service validation failed", zap.Any("errors", errs))
		return nil, &ValidationError{Fields: errs}
	}

	service, err := s.load(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, caller, service); err != nil {
		return nil, err
	}

	// Only update provided fields
	if req.Title != nil {
		service.Title = strings.TrimSpace(*req.Title)
	}
	if req.Category != nil {
		service.Category = strings.TrimSpace(*req.Category)
	}
	if req.Description != nil {
		service.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		service.Price = *req.Price
	}
	if req.Lat != nil || req.Lng != nil {
		location, err := pairPoint(req.Lat, req.Lng)
		if err != nil {
			return nil, err
		}
		service.Location = location
	}

	oldPublicID := ""
	if image != nil {
		uploaded, err := s.images.Upload(ctx, image.File, image.Filename)
		if err != nil {
			s.log.Error("Failed to upload service image", zap.Error(err))
			return nil, fmt.Errorf("upload image: %w", err)
		}
		oldPublicID = service.ImagePublicID
		service.Image = uploaded.URL
		service.ImagePublicID = uploaded.PublicID
	}
	service.UpdatedAt = s.now()

	if err := s.repo.Service.Update(ctx, service); err != nil {
		if image != nil {
			s.deleteImage(service.ImagePublicID)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: service", ErrNotFound)
		}
		return nil, fmt.Errorf("update service: %w", err)
	}

	// the replaced image is no longer referenced
	s.deleteImage(oldPublicID)

	s.log.Info("Service updated", zap.String("service_id", service.ID.String()))
	return s.reload(ctx, service)
}

// DeleteService removes the record first. The stored image is deleted in the
// background and a failure there is only logged.
func (s *catalogService) DeleteService(ctx context.Context, caller utils.Session, serviceID string) error {
	service, err := s.load(ctx, serviceID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, caller, service); err != nil {
		return err
	}

	if err := s.repo.Service.Delete(ctx, service.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: service", ErrNotFound)
		}
		return fmt.Errorf("delete service: %w", err)
	}

	s.deleteImage(service.ImagePublicID)

	s.log.Info("Service deleted",
		zap.String("service_id", service.ID.String()),
		zap.String("deleted_by", caller.UserID.String()))
	return nil
}

func (s *catalogService) ListServices(ctx context.Context, req *request.ListServicesRequest) ([]*response.ServiceResponse, error) {
	filter := entity.ServiceFilter{Category: strings.TrimSpace(req.Category)}

	near, err := pairPoint(req.Lat, req.Lng)
	if err != nil {
		return nil, err
	}
	if near != nil {
		if !near.Valid() {
			return nil, newValidationError("lat", "Must be a valid coordinate pair")
		}
		filter.Near = near
		filter.RadiusKm = s.geo.DefaultRadiusKm
		if req.RadiusKm != nil {
			if !geo.ValidRadius(*req.RadiusKm) {
				return nil, newValidationError("radius", "Must be a finite number greater than 0")
			}
			filter.RadiusKm = *req.RadiusKm
		}
	}

	services, err := s.repo.Service.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	return response.ServicesToResponse(services), nil
}

func (s *catalogService) GetService(ctx context.Context, serviceID string) (*response.ServiceResponse, error) {
	service, err := s.load(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	return response.ServiceToResponse(service), nil
}

// ==================== HELPER METHODS ====================

func (s *catalogService) load(ctx context.Context, rawID string) (*entity.Service, error) {
	id, err := uuid.Parse(strings.TrimSpace(rawID))
	if err != nil {
		return nil, fmt.Errorf("%w: service", ErrNotFound)
	}

	service, err := s.repo.Service.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find service: %w", err)
	}
	if service == nil {
		return nil, fmt.Errorf("%w: service", ErrNotFound)
	}
	return service, nil
}

// reload fetches the joined row; the plain entity is returned if it vanished meanwhile
func (s *catalogService) reload(ctx context.Context, service *entity.Service) (*response.ServiceResponse, error) {
	fresh, err := s.repo.Service.FindByID(ctx, service.ID)
	if err != nil {
		return nil, fmt.Errorf("reload service: %w", err)
	}
	if fresh == nil {
		return response.ServiceToResponse(service), nil
	}
	return response.ServiceToResponse(fresh), nil
}

// ownerFor returns the provider a new service belongs to. Providers always
// own what they create; admins must name the provider.
func (s *catalogService) ownerFor(ctx context.Context, caller utils.Session, providerID string) (*entity.Provider, error) {
	if caller.Role.Can(entity.CapBypassOwnership) {
		if providerID == "" {
			return nil, newValidationError("provider_id", "This field is required")
		}
		id, err := uuid.Parse(providerID)
		if err != nil {
			return nil, newValidationError("provider_id", "Must be a valid UUID")
		}
		provider, err := s.repo.Provider.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("find provider: %w", err)
		}
		if provider == nil {
			return nil, fmt.Errorf("%w: provider", ErrNotFound)
		}
		return provider, nil
	}

	if !caller.Role.Can(entity.CapManageServices) {
		return nil, ErrForbidden
	}

	provider, err := s.repo.Provider.FindByUserID(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("find provider: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: provider profile", ErrNotFound)
	}
	return provider, nil
}

// authorize allows the owning provider and roles that bypass ownership
func (s *catalogService) authorize(ctx context.Context, caller utils.Session, service *entity.Service) error {
	if caller.Role.Can(entity.CapBypassOwnership) {
		return nil
	}
	if !caller.Role.Can(entity.CapManageServices) {
		return ErrForbidden
	}

	provider, err := s.repo.Provider.FindByUserID(ctx, caller.UserID)
	if err != nil {
		return fmt.Errorf("find provider: %w", err)
	}
	if provider == nil || provider.ID != service.ProviderID {
		s.log.Warn("Service ownership check failed",
			zap.String("service_id", service.ID.String()),
			zap.String("user_id", caller.UserID.String()))
		return fmt.Errorf("%w: not the owner of this service", ErrForbidden)
	}
	return nil
}

// deleteImage removes a stored image without blocking the request
func (s *catalogService) deleteImage(publicID string) {
	if publicID == "" {
		return
	}

	s.cleanup.Add(1)
	go func() {
		defer s.cleanup.Done()

		ctx, cancel := context.WithTimeout(context.Background(), imageCleanupTimeout)
		defer cancel()

		if err := s.images.Delete(ctx, publicID); err != nil {
			s.log.Warn("Failed to delete stored image",
				zap.Error(err),
				zap.String("public_id", publicID))
		}
	}()
}

func (s *catalogService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.cleanup.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.log.Warn("Image cleanup still running at shutdown", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

// pairPoint accepts both coordinates or neither
func pairPoint(lat, lng *float64) (*geo.Point, error) {
	switch {
	case lat == nil && lng == nil:
		return nil, nil
	case lat == nil:
		return nil, newValidationError("lat", "lat and lng must be provided together")
	case lng == nil:
		return nil, newValidationError("lng", "lat and lng must be provided together")
	}
	return &geo.Point{Lat: *lat, Lng: *lng}, nil
}
