package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/shopbot/internal/api/http"
	"github.com/spec-kit/shopbot/internal/api/http/handlers"
	"github.com/spec-kit/shopbot/internal/auth"
	"github.com/spec-kit/shopbot/internal/bot"
	"github.com/spec-kit/shopbot/internal/config"
	"github.com/spec-kit/shopbot/internal/events"
	"github.com/spec-kit/shopbot/internal/observability"
	"github.com/spec-kit/shopbot/internal/persistence"
	"github.com/spec-kit/shopbot/internal/platform"
	"github.com/spec-kit/shopbot/internal/repository"
	"github.com/spec-kit/shopbot/internal/service"
	"github.com/spec-kit/shopbot/internal/storefront"
	"github.com/spec-kit/shopbot/internal/worker"
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

	pool := pg.PoolHandle()
	redemptionRepo := repository.NewRedemptionRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)

	store := storefront.NewClient(cfg.Storefront, logger)
	dispatcher := events.NewInMemoryDispatcher()
	inspector := service.NewInspectorService(redemptionRepo, store)

	var shopBot *bot.Bot
	var dashboard *worker.DashboardWorker

	if cfg.Discord.Configured() {
		session, err := platform.Connect(cfg.Discord, logger)
		if err != nil {
			logger.Fatal("failed to connect gateway", zap.Error(err))
		}
		defer session.Close()

		botUserID := session.State.User.ID
		granter := platform.NewGranter(session, cfg.Discord.GuildID, logger)
		messenger := platform.NewMessenger(session, botUserID, logger)
		channels := platform.NewChannelManager(session, cfg.Discord.GuildID, botUserID, logger)

		redemptions := service.NewRedemptionService(service.RedemptionDependencies{
			Ledger:       redemptionRepo,
			Store:        store,
			Granter:      granter,
			Deliverer:    messenger,
			Guard:        redis,
			Dispatcher:   dispatcher,
			AccessRoleID: cfg.Discord.AccessRoleID,
			Logger:       logger,
		})
		tickets := service.NewTicketService(service.TicketDependencies{
			TicketRepo:   ticketRepo,
			Channels:     channels,
			Messenger:    messenger,
			Dispatcher:   dispatcher,
			CategoryID:   cfg.Discord.TicketCategoryID,
			StaffRoleIDs: cfg.Discord.StaffRoleIDs,
			Logger:       logger,
		})

		audit := service.NewAuditService(dispatcher, messenger, cfg.Discord.LogChannelID, logger)
		worker.StartAuditWorker(audit)

		botDispatcher := bot.NewDispatcher(redemptions, tickets, inspector,
			cfg.Discord, cfg.Panel, store.ShopURL(), logger)
		shopBot = bot.New(session, botDispatcher, cfg.Discord.GuildID, logger)
		if err := shopBot.Start(); err != nil {
			logger.Fatal("failed to start bot", zap.Error(err))
		}

		dashboard = worker.NewDashboardWorker(messenger, cfg.Discord, cfg.Panel, store.ShopURL(), logger)
		dashboard.Start(ctx)
	} else {
		logger.Warn("discord not configured; running operations API only")
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewMiddleware(tokens)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(cfg.Auth, tokens),
		Orders:         handlers.NewOrdersHandler(inspector),
		Redemptions:    handlers.NewRedemptionsHandler(redemptionRepo),
		Tickets:        handlers.NewTicketsHandler(ticketRepo),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if dashboard != nil {
		dashboard.Stop()
	}
	if shopBot != nil {
		shopBot.Stop()
	}
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
