package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"compras/internal/amqp"
	"compras/internal/auth"
	"compras/internal/cli"
	apphttp "compras/internal/http"
	applog "compras/internal/log"
	"compras/internal/middleware/ratelimit"
	"compras/internal/services"
	"compras/internal/websocket"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(slog.Default())
	logger, logFile := cli.SetupLogger(cfg.LogLevel, cfg.LogFile)
	defer logFile.Close()

	logger.Info("Starting compras server", "port", cfg.Port)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// Publisher stays a nil interface when AMQP is disabled.
	var (
		publisher  services.Publisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		client, err := amqp.NewClientWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 5)
		cancel()
		if err != nil {
			logger.Error("Failed to connect to AMQP", "error", err)
			repo.Close()
			os.Exit(1)
		}
		amqpClient, publisher = client, client
		logger.Info("AMQP publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - purchases are exported by the periodic sweep only")
	}

	hub := websocket.NewHub(logger)
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimitRPM,
		CleanupInterval:   5 * time.Minute,
	})

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Purchases:      services.NewPurchaseService(repo, publisher, hub),
		Catalog:        services.NewCatalogService(repo, hub),
		Shopping:       services.NewShoppingService(repo, hub),
		Reports:        services.NewReportService(repo),
		Hub:            hub,
		Auth:           auth.NewAuthenticator(cfg.JWTSecret, cfg.JWTAudience),
		Limiter:        limiter,
		DB:             repo,
		Logger:         applog.Default(applog.ComponentHTTP),
		OriginPatterns: cfg.WSOriginPatterns,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", "error", err)
			}
		}
		if err := repo.Close(); err != nil {
			logger.Error("Database close error", "error", err)
		}
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
