package wire

import (
	"net/http"

	"local-services/internal/adaptor"
	"local-services/internal/data/repository"
	"local-services/internal/usecase"
	"local-services/pkg/middleware"
	"local-services/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the wired router and the services main needs at startup
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// guard is the authentication middleware shared by every protected route
type guard = func(http.Handler) http.Handler

// Wiring builds services, handlers and routes
func Wiring(repo *repository.Repository, deps usecase.Deps, config *utils.Config, logger *zap.Logger) *App {
	service := usecase.NewService(repo, deps, config, logger)
	handler := adaptor.NewHandler(service, config, logger)

	authn := middleware.Authenticate(deps.Tokens, repo.User, logger)
	router := setupRouter(handler, authn, config, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

func setupRouter(handler *adaptor.Handler, authn guard, config *utils.Config, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.App.CORSOrigins))

	wireAuth(r, handler.Auth, logger)
	wireUser(r, handler.User, authn, logger)
	wireService(r, handler.Service, authn, logger)
	wireBooking(r, handler.Booking, authn, logger)
	wireProvider(r, handler.Provider, authn, logger)
	wireAdmin(r, handler.Admin, authn, logger)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
