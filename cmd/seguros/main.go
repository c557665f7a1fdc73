package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"seguros/internal/amqp"
	"seguros/internal/apiclient"
	"seguros/internal/cache"
	"seguros/internal/cli"
	"seguros/internal/dataset"
	apphttp "seguros/internal/http"
	"seguros/internal/log"
	"seguros/internal/services"
	"seguros/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := apphttp.Options{
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AdminToken:         cfg.AdminToken,
		Logger:             logger,
	}

	var (
		cleanups   []func() error
		cacheMgr   *cache.Manager
		amqpClient *amqp.Client
	)

	if cfg.DashboardAPIURL != "" {
		// Remote mode: the dashboard renders what another instance serves.
		client := apiclient.New(cfg.DashboardAPIURL, cfg.APITimeout, logger)
		status, version := client.Health(ctx)
		logger.Info("Using remote market API",
			"url", cfg.DashboardAPIURL,
			"status", status,
			"version", version)
		opts.Market = client
	} else {
		res := cli.OpenSource(ctx, logger, cfg, cfg.DataSource)
		cleanups = append(cleanups, res.Close)

		store := dataset.NewStore(res.Reader, logger)
		start := time.Now()
		if d, err := store.Load(ctx); err != nil {
			// Not fatal: readiness reports not_ready and the next request retries.
			logger.Error("Initial dataset load failed",
				log.FieldOperation, log.OpLoad,
				log.FieldSource, cfg.DataSource,
				log.FieldError, err.Error())
		} else {
			logger.Info("Dataset loaded",
				log.FieldSource, d.Source(),
				log.FieldRecords, d.Len(),
				"dropped", d.Dropped(),
				log.FieldDuration, time.Since(start).Milliseconds())
		}

		lru := cache.NewLRUCache[any](cfg.CacheSize, cfg.CacheTTL)
		cacheMgr = cache.NewManager(logger)
		cacheMgr.Register(lru)
		cacheMgr.StartCleanup(time.Minute)

		opts.Market = services.NewMarketService(store, lru, logger)
		opts.Store = store
		opts.Cache = lru

		if cfg.AMQPURL != "" {
			var err error
			amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				logger.Error("Failed to initialize AMQP client, reload messages disabled", log.FieldError, err.Error())
			} else {
				go func() {
					if err := worker.NewReloadWorker(store).Run(ctx, amqpClient); err != nil && !errors.Is(err, context.Canceled) {
						logger.Error("Reload consumer stopped", log.FieldError, err.Error())
					}
				}()
				logger.Info("Listening for dataset reload messages", "queue", cfg.AMQPQueue)
			}
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, opts)
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if cacheMgr != nil {
			cacheMgr.Stop()
		}
		for _, c := range cleanups {
			if err := c(); err != nil {
				logger.Warn("Cleanup failed", log.FieldError, err.Error())
			}
		}
	})

	logger.Info("Starting seguros server",
		"port", cfg.Port,
		log.FieldSource, cfg.DataSource,
		"remote", cfg.DashboardAPIURL != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
