package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/syncline/marketsync/internal/api"
	"github.com/syncline/marketsync/internal/archive"
	"github.com/syncline/marketsync/internal/config"
	"github.com/syncline/marketsync/internal/logger"
	"github.com/syncline/marketsync/internal/marketplace"
	"github.com/syncline/marketsync/internal/marketplace/shopify"
	"github.com/syncline/marketsync/internal/marketplace/vtex"
	"github.com/syncline/marketsync/internal/queue"
	"github.com/syncline/marketsync/internal/repository"
	"github.com/syncline/marketsync/internal/service"
)

func main() {
	// Initialize logger from environment
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	// Initialize repositories
	connectionRepo := repository.NewConnectionRepository(db)
	productRepo := repository.NewProductRepository(db)
	cacheRepo := repository.NewCatalogCacheRepository(db)
	jobRepo := repository.NewSyncJobRepository(db)

	// Initialize redis-backed connection locking when enabled
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			appLogger.WithError(err).Fatal("Failed to connect to redis")
		}
	}
	locker := queue.NewConnectionLocker(redisClient)

	// Initialize raw payload archive
	payloadArchive, err := archive.New(&cfg.Archive)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize payload archive")
	}

	// Register marketplace adapters
	registry := marketplace.NewRegistry()
	registry.Register(shopify.NewAdapter(&shopify.Config{
		APIVersion:        cfg.Marketplaces.Shopify.APIVersion,
		RequestsPerSecond: cfg.Marketplaces.Shopify.RequestsPerSecond,
		Burst:             cfg.Marketplaces.Shopify.Burst,
	}))
	registry.Register(vtex.NewAdapter(&vtex.Config{
		Environment:       cfg.Marketplaces.VTEX.Environment,
		RequestsPerSecond: cfg.Marketplaces.VTEX.RequestsPerSecond,
		Burst:             cfg.Marketplaces.VTEX.Burst,
	}))

	// Initialize queue and services
	jobQueue := queue.NewGormQueue(jobRepo)

	retry := service.RetryPolicy{
		MaxAttempts: cfg.Sync.RetryCount,
		Backoff:     cfg.Sync.RetryBackoff,
	}

	connectionService := service.NewConnectionService(connectionRepo, productRepo, cacheRepo, registry, appLogger)
	metadataService := service.NewMetadataService(connectionRepo, cacheRepo, registry, appLogger, &service.MetadataConfig{
		TTLHours:       cfg.Cache.TTLHours,
		ProbeBatchSize: cfg.Cache.ProbeBatchSize,
		Retry:          retry,
	})
	syncService := service.NewSyncService(connectionRepo, productRepo, registry, jobQueue, locker, payloadArchive, appLogger, &service.SyncConfig{
		ItemConcurrency: cfg.Sync.ItemConcurrency,
		PollInterval:    cfg.Sync.PollInterval,
		LockTTL:         cfg.Sync.LockTTL,
		Retry:           retry,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hostname, _ := os.Hostname()

	// Start sync workers
	var wg sync.WaitGroup
	for i := 0; i < cfg.Sync.Workers; i++ {
		wg.Add(1)
		go func(workerID string) {
			defer wg.Done()
			_ = syncService.Run(ctx, workerID)
		}(fmt.Sprintf("%s-%d", hostname, i))
	}

	// Reclaim jobs whose worker died mid-run
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := jobRepo.ReclaimExpiredLeases(ctx, cfg.Sync.LeaseMaxAge)
				if err != nil {
					appLogger.WithError(err).Error("Failed to reclaim expired leases")
				} else if n > 0 {
					appLogger.WithField("count", n).Warn("Reclaimed expired job leases")
				}
			}
		}
	}()

	// Setup router
	router := api.SetupRouter(connectionService, metadataService, jobQueue, productRepo, appLogger, cfg.Server.Mode, cfg.Server.AllowedOrigins)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port":    cfg.Server.Port,
			"mode":    cfg.Server.Mode,
			"workers": cfg.Sync.Workers,
		}).Info("Starting sync engine")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")

	// Stop workers, then drain HTTP with timeout
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Sync engine exited")
}
