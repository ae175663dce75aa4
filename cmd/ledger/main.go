package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/auth"
	"ledger/internal/cache"
	"ledger/internal/cli"
	apphttp "ledger/internal/http"
	applog "ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/services"
)

const cacheSweepInterval = 10 * time.Minute

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		applog.New(applog.DefaultConfig()).Error("Failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		applog.New(applog.DefaultConfig()).Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)

	ctx, stop := cli.ShutdownContext(context.Background(), logger)
	defer stop()

	res, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	guard, err := auth.NewGuard(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		logger.Error("Failed to initialize access guard", "error", err)
		os.Exit(1)
	}

	svc := services.NewLedgerService(res.Backend.Store, res.Backend.Publisher, cfg.DisplayCurrency).
		WithLogger(logger)
	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute})
	janitor := cache.NewJanitor(guard.Tokens())

	srv := apphttp.NewServer(apphttp.Options{
		Addr:     ":" + cfg.Port,
		Service:  svc,
		Guard:    guard,
		Limiter:  limiter,
		Detector: security.NewDetector(),
		Headers:  security.DefaultHeadersConfig(),
		Logger:   logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return limiter.Run(gctx) })
	g.Go(func() error { return janitor.Run(gctx, cacheSweepInterval) })
	g.Go(func() error {
		logger.Info("Starting ledger server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"amqp_enabled", res.Backend.Publisher != nil,
			applog.FieldOperation, applog.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		stop()
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", "requests", srv.Requests(), applog.FieldOperation, applog.OpShutdown)
}
