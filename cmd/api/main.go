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

	httptransport "github.com/barboraplasovska/StudyBuddies-sub000/internal/api/http"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/api/http/handlers"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/auth"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/config"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/domain"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/events"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/membership"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/observability"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/persistence"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/repository"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/service"
	"github.com/barboraplasovska/StudyBuddies-sub000/internal/worker"
)

const shutdownTimeout = 10 * time.Second

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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), "migrations", logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer rdb.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification))

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	groupRepo := repository.NewGroupRepository(pool)
	eventRepo := repository.NewEventRepository(pool)
	sessionRepo := repository.NewSessionRepository(rdb.Client, cfg.Auth.SessionRetention())

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	gate := auth.NewGatekeeper(auth.GateDependencies{
		Tokens:   tokens,
		Accounts: userRepo,
		Sessions: sessionRepo,
		Metrics:  metrics,
		Logger:   logger,
	})

	groupEngine := membership.NewEngine(membership.Dependencies{
		Kind:       domain.ContainerGroup,
		Store:      repository.NewMembershipRepository(pool, repository.GroupMembershipTables),
		Containers: groupRepo,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	eventEngine := membership.NewEngine(membership.Dependencies{
		Kind:       domain.ContainerEvent,
		Store:      repository.NewMembershipRepository(pool, repository.EventMembershipTables),
		Containers: eventRepo,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:    userRepo,
		SessionRepo: sessionRepo,
		Tokens:      tokens,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	containerService := service.NewContainerService(service.ContainerDependencies{
		GroupRepo: groupRepo,
		EventRepo: eventRepo,
	})

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(authService),
		Containers:     handlers.NewContainersHandler(containerService),
		GroupMembers:   handlers.NewMembershipHandler(groupEngine),
		EventMembers:   handlers.NewMembershipHandler(eventEngine),
		Chat:           handlers.NewChatHandler(),
		AuthMiddleware: auth.NewAuthMiddleware(gate),
		GroupRoles:     groupEngine,
		EventRoles:     eventEngine,
		Metrics:        metrics,
		RateLimit:      cfg.RateLimit,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
