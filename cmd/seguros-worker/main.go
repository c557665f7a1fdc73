package main

import (
	"context"
	"os"
	"time"

	"seguros/internal/amqp"
	"seguros/internal/cli"
	"seguros/internal/log"
	"seguros/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)

	logger.Info("Starting seguros-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateImport(); err != nil {
		logger.Error("Import configuration invalid", log.FieldError, err.Error())
		os.Exit(1)
	}

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	// Reload messages are optional; without a broker the dashboards pick up
	// new imports on their next restart or explicit reload.
	var publisher services.ReloadPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	src := cli.OpenSource(ctx, logger, cfg, cfg.ImportFrom)
	defer src.Close()

	processorCfg := services.DefaultImportProcessorConfig()
	processorCfg.Interval = cfg.ImportInterval
	processor := services.NewImportProcessor(services.NewImportService(sqliteRepo, publisher), src.Reader, processorCfg)

	if err := processor.Start(ctx); err != nil {
		logger.Error("Failed to start import processor", log.FieldError, err.Error())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)

	logger.Info("Shutting down worker...")
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := processor.Stop(stopCtx); err != nil {
		logger.Warn("Import processor did not stop cleanly", log.FieldError, err.Error())
	}
	logger.Info("Worker shutdown complete")
}
