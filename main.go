package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"local-services/cmd"
	"local-services/internal/data/repository"
	"local-services/internal/job"
	"local-services/internal/usecase"
	"local-services/internal/wire"
	"local-services/pkg/database"
	"local-services/pkg/events"
	"local-services/pkg/mailer"
	"local-services/pkg/ratelimit"
	"local-services/pkg/storage"
	"local-services/pkg/token"
	"local-services/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.InitDB(ctx, config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}
	logger.Info("Database connected successfully")

	repos := repository.NewRepository(db, logger)

	deps, closeDeps := buildDeps(ctx, config, logger)
	defer closeDeps()

	app := wire.Wiring(repos, deps, config, logger)

	if b := config.Bootstrap; b.AdminEmail != "" {
		if err := app.Service.Auth.EnsureAdmin(ctx, b.AdminName, b.AdminEmail, b.AdminPassword); err != nil {
			logger.Fatal("Failed to bootstrap admin", zap.Error(err))
		}
	}

	scheduler := job.NewScheduler(logger)
	if err := scheduler.Register("purge-expired-codes", config.Jobs.PurgeCodesSpec,
		job.PurgeCodes(repos.OTP, time.Now, logger)); err != nil {
		logger.Fatal("Failed to schedule jobs", zap.Error(err))
	}
	scheduler.Start()

	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))
	if err := cmd.APIServer(ctx, app.Router, config.App.Port, config.App.ShutdownWait, logger); err != nil {
		logger.Error("Server stopped", zap.Error(err))
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), config.App.ShutdownWait)
	defer cancel()
	scheduler.Stop(stopCtx)
	if err := app.Service.Catalog.Drain(stopCtx); err != nil {
		logger.Warn("Image cleanup did not finish", zap.Error(err))
	}

	logger.Info("Server exited")
}

// buildDeps connects the optional outbound services. Redis, NATS and
// Cloudinary fall back to no-op implementations when not configured.
func buildDeps(ctx context.Context, config *utils.Config, logger *zap.Logger) (usecase.Deps, func()) {
	var closers []func()

	mail, err := mailer.New(config.Email, logger)
	if err != nil {
		logger.Fatal("Failed to init mailer", zap.Error(err))
	}

	deps := usecase.Deps{
		Tokens: token.NewManager(config.JWT.Secret, config.JWT.TTL()),
		Mailer: mail,
		Now:    time.Now,
	}

	redisClient, err := ratelimit.NewRedisClient(ctx, config.Redis.Addr, config.Redis.Password, config.Redis.DB)
	switch {
	case err != nil:
		logger.Warn("Redis unavailable, rate limiting disabled", zap.Error(err))
	case redisClient != nil:
		window := config.OTP.ResendWindow()
		deps.ResendLimiter = ratelimit.NewRedisLimiter(redisClient, "otp-resend", config.OTP.ResendLimit, window, logger)
		deps.ForgotLimiter = ratelimit.NewRedisLimiter(redisClient, "forgot", config.OTP.ResendLimit, window, logger)
		closers = append(closers, func() { redisClient.Close() })
	}

	if config.NATS.URL != "" {
		publisher, err := events.NewNATSPublisher(config.NATS.URL, logger)
		if err != nil {
			logger.Warn("NATS unavailable, booking events disabled", zap.Error(err))
		} else {
			deps.Events = publisher
			closers = append(closers, func() { publisher.Close() })
		}
	}

	if config.Storage.CloudName != "" {
		store, err := storage.NewCloudinaryStore(config.Storage)
		if err != nil {
			logger.Fatal("Failed to init image storage", zap.Error(err))
		}
		deps.Images = store
	} else {
		logger.Warn("CLOUDINARY_CLOUD_NAME not set, image uploads disabled")
	}

	return deps, func() {
		for _, c := range closers {
			c()
		}
	}
}
