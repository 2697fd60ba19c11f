package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/editor-bot/internal/api/handler"
	"github.com/cuongbtq/editor-bot/internal/api/router"
	apistorage "github.com/cuongbtq/editor-bot/internal/api/storage"
	"github.com/cuongbtq/editor-bot/internal/bot"
	"github.com/cuongbtq/editor-bot/internal/config"
	"github.com/cuongbtq/editor-bot/internal/intake"
	"github.com/cuongbtq/editor-bot/internal/observability"
	"github.com/cuongbtq/editor-bot/internal/provider"
	"github.com/cuongbtq/editor-bot/internal/settings"
	"github.com/cuongbtq/editor-bot/internal/worker"
	workerstorage "github.com/cuongbtq/editor-bot/internal/worker/storage"
	"github.com/cuongbtq/editor-bot/shared/logger"
	"github.com/cuongbtq/editor-bot/shared/postgresql"
	"github.com/cuongbtq/editor-bot/shared/rabbitmq"
	"github.com/cuongbtq/editor-bot/shared/telegram"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("BOT_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/bot-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.LoadSecrets(os.Getenv); err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Telegram.Token == "" {
		return errors.New("BOT_TOKEN is required")
	}
	if len(cfg.Bot.AdminIDs) == 0 {
		return errors.New("ADMIN_IDS is required")
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting bot service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("telegram_mode", cfg.Telegram.Mode),
	)

	observability.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	if err := dbClient.Migrate(ctx, apistorage.Schema, workerstorage.Schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	apiStore := apistorage.NewStorage(dbClient.GetDB())
	jobStore := workerstorage.NewStorage(dbClient.GetDB(), appLogger.Logger)

	settingsService := settings.NewService(apiStore, appLogger.Logger)
	if err := settingsService.Seed(ctx, os.Getenv); err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}

	// Providers
	registry := initProviders(&cfg.Providers, appLogger.Logger)
	for name, count := range registry.ReloadKeys() {
		if count == 0 {
			appLogger.Warn("Provider has no API keys configured", slog.String("provider", name))
		}
	}

	tg := telegram.NewClient(&telegram.Config{
		APIURL:     cfg.Telegram.APIURL,
		Token:      cfg.Telegram.Token,
		HTTPClient: &http.Client{Timeout: cfg.Telegram.PollTimeout + 15*time.Second},
		Logger:     appLogger.Logger,
	})

	// Optional job event publishing
	var publisher worker.EventPublisher
	if cfg.RabbitMQ.Enabled {
		rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		defer rabbitClient.Close()
		publisher = worker.NewBrokerEventPublisher(rabbitClient, cfg.RabbitMQ.RoutingKey)
	}

	// Job queue
	workerInstance := worker.NewWorker(&worker.Config{
		Logger:      appLogger.Logger,
		Store:       jobStore,
		Deliverer:   tg,
		Editors:     registry.Editors(),
		Publisher:   publisher,
		Concurrency: cfg.Worker.Concurrency,
		QueueSize:   cfg.Worker.QueueSize,
	})
	if err := workerInstance.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	limiter, closeLimiter, err := initLimiter(ctx, &cfg.Redis, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize rate limiter: %w", err)
	}
	defer closeLimiter()

	intakeService := intake.NewService(&intake.Config{
		Logger:             appLogger.Logger,
		Users:              apiStore,
		Settings:           settingsService,
		Jobs:               jobStore,
		Queue:              workerInstance,
		Limiter:            limiter,
		DefaultInstruction: cfg.Bot.DefaultInstruction,
	})

	chatBot := bot.New(&bot.Config{
		Logger:   appLogger.Logger,
		Sender:   tg,
		Files:    tg,
		Users:    apiStore,
		Settings: settingsService,
		Intake:   intakeService,
		Queue:    workerInstance,
		Jobs:     jobStore,
		Keys:     registry,
		AdminIDs: cfg.Bot.AdminIDs,
	})

	deps := &handler.Dependencies{
		Logger:        appLogger.Logger,
		Jobs:          apiStore,
		Settings:      settingsService,
		Stats:         jobStore,
		Queue:         workerInstance,
		Keys:          registry,
		AdminToken:    cfg.Bot.AdminAPIToken,
		WebhookSecret: cfg.Telegram.WebhookSecret,
		HealthCheck:   dbClient.HealthCheck,
	}
	if cfg.Telegram.Mode == config.TelegramModeWebhook {
		deps.OnUpdate = chatBot.HandleUpdate
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      initRouter(cfg.App.Environment, deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errChan := make(chan error, 2)
	go func() {
		appLogger.Info("Starting HTTP server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Chat transport
	switch cfg.Telegram.Mode {
	case config.TelegramModeWebhook:
		if err := tg.SetWebhook(ctx, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			return fmt.Errorf("failed to register webhook: %w", err)
		}
		appLogger.Info("Telegram webhook registered")
	default:
		if err := tg.DeleteWebhook(ctx); err != nil {
			appLogger.Warn("Failed to clear webhook before polling", slog.String("error", err.Error()))
		}
		poller := telegram.NewPoller(tg, cfg.Telegram.PollTimeout, appLogger.Logger)
		go func() {
			if err := poller.Run(ctx, chatBot.HandleUpdate); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- fmt.Errorf("telegram poller: %w", err)
			}
		}()
		appLogger.Info("Telegram long polling started")
	}

	appLogger.Info("Bot service is running",
		slog.Int("workers", workerInstance.Concurrency()),
		slog.String("db_pool", dbClient.PoolStats()),
	)

	select {
	case <-ctx.Done():
		appLogger.Info("Received signal, shutting down gracefully")
	case err := <-errChan:
		appLogger.Error("Service error", slog.Any("error", err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", slog.Any("error", err))
	}

	// In-flight and queued jobs finish before the process exits
	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Worker stopped gracefully")
	case <-time.After(cfg.Worker.ShutdownTimeout):
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit",
			slog.Int("queued", workerInstance.QueueLen()),
		)
	}

	appLogger.Info("Bot service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		ConnectAttempts: cfg.ConnectAttempts,
		ConnectInterval: cfg.ConnectInterval,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueBindKey:       cfg.RoutingKey + ".#",
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initProviders builds one adapter per provider, reading keys from the environment on every refresh
func initProviders(cfg *config.ProvidersConfig, logger *slog.Logger) *provider.Registry {
	hc := &http.Client{}

	newAdapter := func(name string, client provider.Client, pc config.ProviderConfig) *provider.Adapter {
		return provider.NewAdapter(provider.AdapterConfig{
			Name:        name,
			Client:      client,
			Rotator:     provider.NewRotator(provider.EnvKeySource(os.Getenv, pc.KeysEnv, pc.KeyEnv)),
			CallTimeout: cfg.CallTimeout,
			Cooldown:    cfg.Cooldown,
			Logger:      logger,
		})
	}

	return provider.NewRegistry(
		newAdapter(provider.OpenAI, provider.NewOpenAIClient(cfg.OpenAI.BaseURL, cfg.OpenAI.Model, hc), cfg.OpenAI),
		newAdapter(provider.Gemini, provider.NewGeminiClient(cfg.Gemini.BaseURL, cfg.Gemini.Model, hc), cfg.Gemini),
	)
}

// initLimiter returns the Redis-backed limiter when enabled, the in-memory one otherwise
func initLimiter(ctx context.Context, cfg *config.RedisConfig, logger *slog.Logger) (intake.RateLimiter, func(), error) {
	if !cfg.Enabled {
		return intake.NewMemoryLimiter(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("Using Redis rate limiter", slog.String("addr", cfg.Addr))
	return intake.NewRedisLimiter(client, cfg.KeyPrefix), func() { client.Close() }, nil
}

// initRouter initializes the Gin router
func initRouter(environment string, deps *handler.Dependencies) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps)
}
