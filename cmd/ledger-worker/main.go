package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"ledger/internal/backend"
	"ledger/internal/cli"
	applog "ledger/internal/log"
	"ledger/internal/worker"
)

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
	logger := cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)
	if !backend.BackendType(cfg.DataBackend).Shared() {
		logger.Error("Reconcile worker needs a shared store", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	ctx, stop := cli.ShutdownContext(context.Background(), logger)
	defer stop()

	res, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	reconciler := worker.NewReconcileWorker(res.Backend.Reader, cfg.ReconcileBatchSize, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return reconciler.Run(gctx, cfg.ReconcileInterval) })
	if client := res.Backend.AMQP; client != nil {
		g.Go(func() error { return client.ConsumeLedgerEvents(gctx, reconciler.HandleLedgerEvent) })
	} else {
		logger.Info("AMQP disabled, relying on periodic scans only")
	}

	logger.Info("Starting ledger-worker",
		"interval", cfg.ReconcileInterval,
		"batch_size", cfg.ReconcileBatchSize,
		applog.FieldOperation, applog.OpStartup)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		stop()
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
