package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/appeal-service/internal/api/http"
	"github.com/spec-kit/appeal-service/internal/api/http/handlers"
	"github.com/spec-kit/appeal-service/internal/auth"
	"github.com/spec-kit/appeal-service/internal/clock"
	"github.com/spec-kit/appeal-service/internal/config"
	"github.com/spec-kit/appeal-service/internal/events"
	"github.com/spec-kit/appeal-service/internal/observability"
	"github.com/spec-kit/appeal-service/internal/persistence"
	"github.com/spec-kit/appeal-service/internal/repository"
	"github.com/spec-kit/appeal-service/internal/service"
	"github.com/spec-kit/appeal-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	sysClock := clock.System()
	uow := persistence.NewUnitOfWork(pg)
	adminRepo := repository.NewAdminRepository(pg.PoolHandle())

	authService := service.NewAuthService(*cfg, adminRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), adminRepo)

	appealService := service.NewAppealService(service.AppealDependencies{
		UnitOfWork: uow,
		Dispatcher: dispatcher,
		Clock:      sysClock,
		Logger:     logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		UnitOfWork: uow,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Clock:      sysClock,
		Logger:     logger,
		StatsCache: service.NewRedisStatsCache(redis.Client, cfg.Redis.StatsCacheTTL, logger),
	})
	expertiseService := service.NewExpertiseService(uow, sysClock, logger)
	escalationService := service.NewEscalationService(service.EscalationDependencies{
		UnitOfWork: uow,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Clock:      sysClock,
		Logger:     logger,
		Threshold:  cfg.SLA.Threshold(),
	})

	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notifications.RegisterHandlers()

	escalationWorker := worker.NewEscalationWorker(escalationService, cfg.SLA.SweepInterval(), logger)
	escalationWorker.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Appeals:        handlers.NewAppealsHandler(appealService, assignmentService),
		Admins:         handlers.NewAdminsHandler(authService, assignmentService, expertiseService, escalationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	escalationWorker.Stop()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
