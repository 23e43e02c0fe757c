package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/KinuGra/tosho-2509-back/internal/api/http"
	"github.com/KinuGra/tosho-2509-back/internal/api/http/handlers"
	"github.com/KinuGra/tosho-2509-back/internal/auth"
	"github.com/KinuGra/tosho-2509-back/internal/config"
	"github.com/KinuGra/tosho-2509-back/internal/events"
	"github.com/KinuGra/tosho-2509-back/internal/mail"
	"github.com/KinuGra/tosho-2509-back/internal/observability"
	"github.com/KinuGra/tosho-2509-back/internal/persistence"
	"github.com/KinuGra/tosho-2509-back/internal/repository"
	"github.com/KinuGra/tosho-2509-back/internal/service"
	"github.com/KinuGra/tosho-2509-back/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	progressRepo := repository.NewProgressRepository(pool)

	readiness := map[string]handlers.Pinger{"postgres": pg}

	var codes repository.VerificationRepository
	switch cfg.Verification.Store {
	case config.StorePostgres:
		codes = repository.NewPostgresVerificationRepository(pool)
		purger := worker.NewPurgeWorker(codes, cfg.Verification.PurgeInterval(), cfg.Verification.Retention(), auth.SystemClock, logger)
		go purger.Run(ctx)
	default:
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		codes = repository.NewRedisVerificationRepository(redis.Client, cfg.Verification.Retention())
		readiness["redis"] = redis
	}

	mailer, err := mail.New(cfg.Mail, logger)
	if err != nil {
		logger.Fatal("failed to init mailer", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger), logger)

	authService, err := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("failed to init auth service", zap.Error(err))
	}
	verificationService := service.NewVerificationService(cfg.Verification, service.VerificationDependencies{
		Codes:      codes,
		Mailer:     mailer,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	progressService := service.NewProgressService(progressRepo, dispatcher, logger, nil)
	rankingService := service.NewRankingService(userRepo)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, cfg.Auth.CookieName)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
		ReadTimeout:  cfg.HTTP.RequestTimeout(),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:     cfg.HTTP.RequestTimeout(),
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Auth:           handlers.NewAuthHandler(authService, handlers.CookieSettings{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure}),
		Verification:   handlers.NewVerificationHandler(verificationService),
		Progress:       handlers.NewProgressHandler(progressService, rankingService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
