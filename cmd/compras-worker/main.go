package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"compras/internal/amqp"
	"compras/internal/backend"
	"compras/internal/cache"
	"compras/internal/cli"
	"compras/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(slog.Default())
	logger, logFile := cli.SetupLogger(cfg.LogLevel, cfg.LogFile)
	defer logFile.Close()

	logger.Info("Starting compras-worker", "backend", cfg.SyncBackend, "interval", cfg.SyncInterval)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), time.Minute)
	result, err := backend.NewFactory(logger).CreateBackend(initCtx, backendCfg)
	if err != nil {
		initCancel()
		logger.Error("Failed to initialize export backend", "error", err)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}()
	}

	caches := cache.NewManager()
	if c, ok := result.Backend.(cache.Cleaner); ok {
		caches.Register("sheet_rows", c)
	}
	caches.StartCleanup(10 * time.Minute)
	defer caches.Stop()

	// Consumer stays a nil interface when AMQP is disabled; the sweep still runs.
	var consumer worker.Consumer
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClientWithRetry(initCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 5)
		if err != nil {
			initCancel()
			logger.Error("Failed to connect to AMQP", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		consumer = client
	} else {
		logger.Info("AMQP disabled - relying on the periodic sweep")
	}
	initCancel()

	syncWorker := worker.NewSyncWorker(repo, result.Backend, cfg.SyncBatchSize)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if err := syncWorker.Run(ctx, consumer, cfg.SyncInterval); err != nil {
		logger.Error("Worker stopped with error", "error", err)
		return
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
