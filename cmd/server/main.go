package main

import (
	"FlashGrade/internal/adapters/eventbus"
	httpapi "FlashGrade/internal/adapters/http"
	"FlashGrade/internal/adapters/postgres"
	redisadapter "FlashGrade/internal/adapters/redis"
	"FlashGrade/internal/adapters/storage"
	"FlashGrade/internal/adapters/telegram"
	"FlashGrade/internal/bot/customer"
	"FlashGrade/internal/bot/customer/handlers"
	"FlashGrade/internal/bot/moderator"
	_ "FlashGrade/internal/bot/moderator/handlers"
	"FlashGrade/internal/bot/wizard"
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/core/pricing"
	"FlashGrade/internal/core/services"
	"FlashGrade/internal/shared/config"
	"FlashGrade/internal/shared/logger"
	"FlashGrade/internal/shared/metrics"
	"FlashGrade/internal/shared/retry"
	"FlashGrade/migrations"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	baseLogger := logger.New(cfg.IsDev(), cfg.LogLevel)
	baseLogger.Info().
		Str("app_env", cfg.AppEnv).
		Str("bot_mode", cfg.Bot.Mode).
		Msg("Configuration loaded")

	m := metrics.Registry(cfg.Metrics.Namespace)
	policy := retry.FromConfig(cfg.Retry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Initialize Database
	db, err := postgres.NewDB(ctx, cfg.Postgres.URL, &baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()
	if err := db.ApplyMigrations(ctx, migrations.Files); err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	// 4. Redis and blob storage
	rdb, err := redisadapter.NewClient(ctx, cfg.Redis, &baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	blobs, err := storage.NewMinioStore(cfg.Storage, policy, m, &baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to initialize blob storage")
	}
	if err := blobs.EnsureBuckets(ctx, ports.BucketInstructions, ports.BucketPaymentProofs); err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to prepare storage buckets")
	}
	fetcher := storage.NewHTTPFetcher(nil, policy, &baseLogger)

	// 5. Telegram client
	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to connect to Telegram")
	}
	api.Debug = false
	baseLogger.Info().Str("username", api.Self.UserName).Msg("Authorized on Telegram")
	if cfg.Bot.Username == "" {
		cfg.Bot.Username = api.Self.UserName
	}
	botClient := telegram.NewClient(api, policy, m, &baseLogger)

	// 6. Repositories
	userRepo := postgres.NewUserRepository(db, &baseLogger)
	stateRepo := postgres.NewConversationStateRepository(db, &baseLogger)
	orderRepo := postgres.NewOrderRepository(db, &baseLogger)
	referralRepo := postgres.NewReferralRepository(db, &baseLogger)
	supportRepo := postgres.NewSupportRepository(db, &baseLogger)
	accountRepo := postgres.NewAdminAccountRepository(db, &baseLogger)
	deviceRepo := postgres.NewTrustedDeviceRepository(db, &baseLogger)
	codeRepo := postgres.NewTwoFactorCodeRepository(db, &baseLogger)

	// 7. Services
	bus := eventbus.NewInMemoryEventBus(&baseLogger)
	referralSvc := services.NewReferralService(referralRepo, m, &baseLogger)
	orderSvc := services.NewOrderService(orderRepo, referralSvc, bus, m, &baseLogger)
	supportSvc := services.NewSupportService(supportRepo, botClient, bus, &baseLogger)
	authSvc := services.NewAuthService(cfg, accountRepo, deviceRepo, codeRepo, userRepo, botClient,
		redisadapter.NewRateLimiter(rdb), &baseLogger)
	relaySvc := services.NewFileRelayService(fetcher, blobs, orderSvc, &baseLogger)
	reportSvc := services.NewReportService(orderSvc, cfg.Payment.Currency)

	// 8. Bot: wizard, routers and notifications
	wiz, err := wizard.New(cfg, wizard.Deps{
		States:    stateRepo,
		Pricing:   pricing.MustDefault(),
		Orders:    orderSvc,
		Referrals: referralSvc,
		Support:   supportSvc,
		Bot:       botClient,
		Files:     blobs,
		Fetcher:   fetcher,
		Metrics:   m,
	}, &baseLogger)
	if err != nil {
		baseLogger.Fatal().Err(err).Msg("Failed to build order wizard")
	}

	router := customer.NewCustomerRouter(userRepo, stateRepo, botClient, m, &baseLogger)
	customer.RegisterAllHandlers(cfg, router, wiz, &baseLogger)

	modRouter := moderator.NewModeratorRouter(cfg.Bot.AdminChatID, userRepo, accountRepo, botClient, m, &baseLogger)
	moderator.RegisterAllHandlers(cfg, modRouter, moderator.Services{
		Orders:  orderSvc,
		Support: supportSvc,
		Bot:     botClient,
	}, &baseLogger)

	adminNotifier := telegram.NewAdminNotifier(botClient, cfg.Bot.AdminChatID, &baseLogger)
	handlers.NewNotificationHandler(botClient, adminNotifier, &baseLogger).Subscribe(bus)

	if err := botClient.SetMenuCommands(ctx); err != nil {
		baseLogger.Warn().Err(err).Msg("Could not set menu commands (continuing)")
	}

	// 9. Servers
	botServer := telegram.NewBotServer(api, moderator.NewDispatcher(modRouter, router), redisadapter.NewUpdateDeduper(rdb), &cfg.Bot, &baseLogger)
	apiServer := httpapi.NewServer(cfg, httpapi.Deps{
		Auth:    authSvc,
		Orders:  orderSvc,
		Support: supportSvc,
		Reports: reportSvc,
		Relay:   relaySvc,
		Events:  httpapi.NewEventHub(bus, m, &baseLogger),
		Health: map[string]httpapi.HealthCheck{
			"postgres": db.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	}, m, &baseLogger)

	var wg sync.WaitGroup
	run := func(name string, start func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := start(ctx); err != nil {
				baseLogger.Error().Err(err).Str("server", name).Msg("Server stopped with error")
				stop()
			}
		}()
	}
	run("bot", botServer.Start)
	run("admin_api", apiServer.Start)

	baseLogger.Info().Msg("FlashGrade is running")
	<-ctx.Done()
	baseLogger.Info().Msg("Shutdown signal received")
	wg.Wait()

	// Let event handlers started by the last updates finish.
	waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := bus.Wait(waitCtx); err != nil {
		baseLogger.Warn().Err(err).Msg("Timed out waiting for event handlers")
	}
	baseLogger.Info().Msg("Shutdown complete")
}
