// Package main provides the entry point for the storefront API
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dropsource/storefront/app/handlers"
	"github.com/dropsource/storefront/app/middleware"
	"github.com/dropsource/storefront/app/router"
	"github.com/dropsource/storefront/app/scheduler"
	"github.com/dropsource/storefront/app/services"
	businessflow "github.com/dropsource/storefront/business_flow"
	"github.com/dropsource/storefront/config"
	"github.com/dropsource/storefront/models"
	"github.com/dropsource/storefront/repository"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	stopFuncs []func()
	closers   []func() error
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logCloser, err := config.ConfigureLogging(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	defer logCloser.Close()

	log.WithFields(log.Fields{
		"environment": cfg.Deployment.Environment,
		"version":     cfg.Deployment.Version,
		"commit":      cfg.Deployment.CommitHash,
	}).Info("Starting storefront...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := initializeApplication(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Info("Shutting down gracefully...")

	for _, fn := range app.stopFuncs {
		fn()
	}

	if err := app.router.Shutdown(); err != nil {
		log.WithError(err).Error("Error during shutdown")
	}

	for _, closeFn := range app.closers {
		if err := closeFn(); err != nil {
			log.WithError(err).Warn("Error releasing resource")
		}
	}

	log.Info("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	slow := cfg.SlowQueryTime
	if slow <= 0 {
		slow = 200 * time.Millisecond
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.New(log.StandardLogger(), gormlogger.Config{
			SlowThreshold:             slow,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithFields(log.Fields{
		"max_open": cfg.MaxOpenConns,
		"max_idle": cfg.MaxIdleConns,
	}).Info("Database connection established")

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.RedisURL == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.WithField("db", cfg.RedisDB).Info("Redis connection established")
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis; the returned function stops it
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.WithError(err).Warn("Redis healthcheck failed")
				}
				c()
			}
		}
	}()
	return cancel
}

// initializePaymentProviders registers a checkout client per configured method
func initializePaymentProviders(cfg *config.ProductionConfig) map[models.DepositMethod]services.PaymentProvider {
	providers := make(map[models.DepositMethod]services.PaymentProvider)
	if cfg.Coinbase.APIKey != "" {
		providers[models.DepositMethodCoinbase] = services.NewCoinbaseClient(cfg.Coinbase.BaseURL, cfg.Coinbase.APIKey, cfg.Coinbase.Timeout)
	} else {
		log.Warn("Coinbase API key not configured; coinbase deposits disabled")
	}
	if cfg.Square.AccessToken != "" && cfg.Square.LocationID != "" {
		providers[models.DepositMethodSquare] = services.NewSquareClient(cfg.Square.BaseURL(), cfg.Square.AccessToken, cfg.Square.LocationID, cfg.Square.Env, cfg.Square.Timeout)
	} else {
		log.Warn("Square credentials not configured; square deposits disabled")
	}
	return providers
}

// initializeNotificationService posts to Telegram when a bot is configured and logs otherwise
func initializeNotificationService(cfg config.NotifierConfig) services.NotificationService {
	if cfg.TelegramBotToken == "" || cfg.TelegramChatID == 0 {
		return services.NewLogNotificationService()
	}
	notifier, err := services.NewTelegramNotificationService(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		log.WithError(err).Warn("Telegram notifier unavailable, falling back to log notices")
		return services.NewLogNotificationService()
	}
	return notifier
}

// initializePayloadArchive stores raw webhook bodies in S3 when enabled
func initializePayloadArchive(ctx context.Context, cfg config.ArchiveConfig) services.PayloadArchive {
	if !cfg.Enabled {
		return services.NoopPayloadArchive{}
	}
	archive, err := services.NewS3PayloadArchive(ctx, services.S3ArchiveOptions{
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Prefix:    cfg.Prefix,
	})
	if err != nil {
		log.WithError(err).Warn("Payload archive unavailable, webhook bodies will not be archived")
		return services.NoopPayloadArchive{}
	}
	return archive
}

// initializeApplication wires config -> db -> cache -> repos -> services -> flows -> handlers -> router
func initializeApplication(ctx context.Context, cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()
	var closers []func() error

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		closers = append(closers, sqlDB.Close)
	}

	var catalogCache services.CatalogCache
	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		log.WithError(err).Warn("Catalog cache disabled")
	} else if rc != nil {
		catalogCache = services.NewRedisCatalogCache(rc, cfg.Cache.RedisPrefix, cfg.Cache.CatalogTTL)
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(ctx, rc, cfg.Cache.CleanupInterval))
		closers = append(closers, rc.Close)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	depositRepo := repository.NewDepositRepository(db)
	webhookLogRepo := repository.NewWebhookLogRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	txManager := repository.NewTxManager(db)

	// Outbound services
	var panel services.PanelClient
	if cfg.Panel.URL != "" && cfg.Panel.APIKey != "" {
		panel = services.NewPanelClient(cfg.Panel.URL, cfg.Panel.APIKey, cfg.Panel.Timeout)
	} else {
		log.Warn("Panel URL or key not configured; catalog and orders are unavailable")
	}
	providers := initializePaymentProviders(cfg)
	notifier := initializeNotificationService(cfg.Notifier)
	archive := initializePayloadArchive(ctx, cfg.Archive)

	var tokens services.IdentityTokenService
	if cfg.Security.IdentityJWTSecret != "" {
		tokens, err = services.NewIdentityTokenService(cfg.Security.IdentityJWTSecret, cfg.Security.IdentityJWTIssuer)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize identity tokens: %w", err)
		}
	}

	// Business flows
	walletFlow := businessflow.NewWalletFlow(userRepo, walletRepo)
	catalogFlow := businessflow.NewCatalogFlow(panel, catalogCache)
	depositFlow := businessflow.NewDepositFlow(walletFlow, depositRepo, providers, cfg.Payments, cfg.Server)
	webhookFlow := businessflow.NewWebhookFlow(
		depositRepo,
		walletRepo,
		webhookLogRepo,
		txManager,
		archive,
		notifier,
		cfg.Coinbase,
		cfg.Square,
		cfg.Payments,
		cfg.Deployment,
	)
	orderFlow := businessflow.NewOrderFlow(walletFlow, catalogFlow, orderRepo, walletRepo, txManager, panel)
	adminFlow := businessflow.NewAdminFlow(depositRepo, walletRepo, webhookLogRepo, catalogFlow, panel, cfg)

	if cfg.Scheduler.CatalogRefreshEnabled && panel != nil {
		refresher, err := scheduler.NewCatalogRefresher(cfg.Scheduler, catalogFlow.Refresh)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
		}
		stop, err := refresher.Start(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to start scheduler: %w", err)
		}
		stopFuncs = append(stopFuncs, stop)
	}

	r := router.NewFiberRouter(cfg, router.Handlers{
		Health:  handlers.NewHealthHandler(cfg.Deployment),
		Catalog: handlers.NewCatalogHandler(catalogFlow),
		Wallet:  handlers.NewWalletHandler(walletFlow),
		Deposit: handlers.NewDepositHandler(depositFlow),
		Order:   handlers.NewOrderHandler(orderFlow),
		Webhook: handlers.NewWebhookHandler(webhookFlow),
		Admin:   handlers.NewAdminHandler(adminFlow),
	}, middleware.NewIdentityMiddleware(tokens, cfg.Security.TrustIdentityHeaders))

	return &Application{
		router:    r,
		config:    cfg,
		stopFuncs: stopFuncs,
		closers:   closers,
	}, nil
}
