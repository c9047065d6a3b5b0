package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moobank/internal/amqp"
	"moobank/internal/cli"
	"moobank/internal/ledger"
	"moobank/internal/log"
	"moobank/internal/worker"
)

func main() {
	logger := cli.Setup(log.ComponentRules)
	logger.Info("Starting rules-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	applicator := ledger.NewRuleApplicator(repo, repo, repo, cfg.MatchWorkers)
	rulesWorker := worker.NewRulesWorker(repo, applicator)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// On startup, sweep every ruled account in case reprocess requests were
	// lost while the worker was down.
	logger.Info("Performing startup reprocess sweep...")
	if err := rulesWorker.ReprocessAllAccounts(ctx); err != nil {
		logger.Error("Startup reprocess sweep failed", "error", err)
		// Don't exit - continue with normal operation
	}

	go func() {
		err := amqpClient.ConsumeRuleReprocess(ctx, rulesWorker.HandleReprocessMessage)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
		cancel()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down rules-worker...")
	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("Rules-worker shutdown complete")
}
