package usecase

import (
	"time"

	"local-services/internal/data/repository"
	"local-services/pkg/events"
	"local-services/pkg/mailer"
	"local-services/pkg/ratelimit"
	"local-services/pkg/storage"
	"local-services/pkg/token"
	"local-services/pkg/utils"

	"go.uber.org/zap"
)

// Deps are the outbound collaborators shared by the services.
type Deps struct {
	Tokens        *token.Manager
	Mailer        mailer.Mailer
	Images        storage.ImageStore
	Events        events.Publisher
	ResendLimiter ratelimit.Limiter
	ForgotLimiter ratelimit.Limiter
	Now           func() time.Time
}

type Service struct {
	Auth     AuthService
	User     UserService
	Catalog  CatalogService
	Booking  BookingService
	Provider ProviderService
	Admin    AdminService
}

func NewService(repo *repository.Repository, deps Deps, config *utils.Config, log *zap.Logger) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.Images == nil {
		deps.Images = storage.DisabledStore{}
	}
	if deps.ResendLimiter == nil {
		deps.ResendLimiter = ratelimit.Nop{}
	}
	if deps.ForgotLimiter == nil {
		deps.ForgotLimiter = ratelimit.Nop{}
	}

	catalog := NewCatalogService(repo, deps.Images, config.Geo, deps.Now, log)

	return &Service{
		Auth:     NewAuthService(repo, deps, config.OTP, log),
		User:     NewUserService(repo, deps.Now, log),
		Catalog:  catalog,
		Booking:  NewBookingService(repo, deps.Events, deps.Now, log),
		Provider: NewProviderService(repo, deps.Now, log),
		Admin:    NewAdminService(repo, catalog, log),
	}
}
