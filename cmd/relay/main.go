package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/relaydesk/ticket-relay/internal/ai"
	httptransport "github.com/relaydesk/ticket-relay/internal/api/http"
	"github.com/relaydesk/ticket-relay/internal/api/http/handlers"
	"github.com/relaydesk/ticket-relay/internal/auth"
	"github.com/relaydesk/ticket-relay/internal/cache"
	"github.com/relaydesk/ticket-relay/internal/config"
	"github.com/relaydesk/ticket-relay/internal/dedup"
	"github.com/relaydesk/ticket-relay/internal/events"
	"github.com/relaydesk/ticket-relay/internal/notify"
	"github.com/relaydesk/ticket-relay/internal/observability"
	"github.com/relaydesk/ticket-relay/internal/persistence"
	"github.com/relaydesk/ticket-relay/internal/platform/slackapi"
	"github.com/relaydesk/ticket-relay/internal/repository"
	"github.com/relaydesk/ticket-relay/internal/service"
	"github.com/relaydesk/ticket-relay/internal/worker"
)

const notificationWorkers = 2

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	var ticketCache cache.TicketCache = cache.Noop{}
	if cfg.Cache.Mode == "memory" {
		ticketCache = cache.NewMemory(cfg.Cache.Capacity)
	}
	store := cache.NewCachedStore(repository.NewTicketStore(pg.PoolHandle()), ticketCache, logger, metrics)

	var dedupe dedup.Deduplicator = dedup.NewMemory(cfg.Dedup.Capacity)
	if cfg.Dedup.Backend == "redis" && redis.Enabled() {
		dedupe = dedup.NewRedis(redis.Client, cfg.Dedup.TTL, cfg.Dedup.Capacity, logger)
	}

	slackClient, err := slackapi.New(cfg.Slack, logger)
	if err != nil {
		logger.Fatal("failed to init slack client", zap.Error(err))
	}

	collaborator, err := ai.NewClient(cfg.AI, store, logger)
	if err != nil {
		logger.Fatal("failed to init ai client", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, notify.NewPinger(cfg.Notify, logger), logger, metrics, 0)
	worker.StartNotificationWorker(ctx, notifications, notificationWorkers)

	relay := service.NewRelayService(cfg.Relay, service.RelayDependencies{
		Store:      store,
		Platform:   slackClient,
		AI:         collaborator,
		Dedup:      dedupe,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	deps := map[string]handlers.Pinger{"postgres": pg, "redis": nil}
	if redis.Enabled() {
		deps["redis"] = redis
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Tickets:        handlers.NewTicketsHandler(service.NewTicketService(store), cfg.Relay.TicketPrefix),
		Staff:          handlers.NewStaffHandler(service.NewStaffService(store)),
		Metrics:        handlers.NewMetricsHandler(metrics),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, store),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Error("fiber listen", zap.Error(err))
			stop()
		}
	}()

	listener := slackapi.NewListener(slackClient, cfg.Slack.Debug, logger)
	logger.Info("relay started",
		zap.String("user_channel", cfg.Relay.UserChannelID),
		zap.String("staff_channel", cfg.Relay.StaffChannelID),
		zap.Bool("ai_enabled", cfg.AI.AIEnabled()),
		zap.Strings("macros", cfg.Relay.Macros.Tags()))
	if err := listener.Run(ctx, relay); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("socket mode stopped", zap.Error(err), observability.Urgent())
	}

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}
