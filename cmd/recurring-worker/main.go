package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"moobank/internal/cli"
	"moobank/internal/ledger"
	"moobank/internal/log"
)

func main() {
	logger := cli.Setup(log.ComponentRecurring)
	logger.Info("Starting recurring-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	processor := ledger.NewRecurringProcessor(repo, repo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Recurring transaction processor configured",
		"schedule", cfg.RecurringSchedule,
		"sqlite_db", cfg.SQLiteDBPath)

	runPass := func() {
		count, err := processor.Process(ctx, time.Now())
		if err != nil {
			logger.Error("Recurring processing pass failed", "error", err)
			return
		}
		logger.Info("Recurring processing pass complete", "transactions_created", count)
	}

	// Catch up anything missed while the worker was down.
	logger.Info("Running initial recurring transaction processing...")
	runPass()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.RecurringSchedule, runPass); err != nil {
		logger.Error("Failed to schedule recurring processing", "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down recurring-worker...")
	cancel()

	// Let an in-flight pass finish before exiting.
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
		logger.Info("Recurring-worker shutdown complete")
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}
