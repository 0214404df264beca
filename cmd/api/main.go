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

	httptransport "github.com/spec-kit/workshop-tickets/internal/api/http"
	"github.com/spec-kit/workshop-tickets/internal/api/http/handlers"
	"github.com/spec-kit/workshop-tickets/internal/config"
	"github.com/spec-kit/workshop-tickets/internal/events"
	"github.com/spec-kit/workshop-tickets/internal/observability"
	"github.com/spec-kit/workshop-tickets/internal/persistence"
	"github.com/spec-kit/workshop-tickets/internal/repository"
	"github.com/spec-kit/workshop-tickets/internal/service"
	"github.com/spec-kit/workshop-tickets/internal/worker"
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

	checks := []handlers.DependencyCheck{}
	var deps service.TicketDependencies
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		deps.TicketRepo = repository.NewTicketRepository(pool)
		deps.HistoryRepo = repository.NewTicketHistoryRepository(pool)
		deps.Transactor = repository.NewTransactor(pool)
		checks = append(checks, handlers.DependencyCheck{Name: "postgres", Ping: pg.Ping})
	} else {
		logger.Warn("tickets are kept in memory and will not survive a restart")
		store := repository.NewMemoryStore()
		deps.TicketRepo = store.Tickets()
		deps.HistoryRepo = store.History()
		deps.Transactor = store
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()
	var publisher *events.RedisPublisher
	if redis.Enabled() {
		publisher = events.NewRedisPublisher(redis, cfg.Redis.EventsChannel, logger)
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Ping: redis.Ping})
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartEventWorkers(
		dispatcher,
		service.NewNotificationService(dispatcher, logger, cfg.Notification),
		publisher,
	)

	deps.Dispatcher = dispatcher
	deps.Metrics = metrics
	deps.Logger = logger
	ticketService := service.NewTicketService(deps)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, time.Duration(cfg.App.RequestTimeoutSeconds)*time.Second)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks...),
		Lifecycle: handlers.NewLifecycleHandler(),
		Tickets:   handlers.NewTicketsHandler(ticketService),
		Metrics:   metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

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
