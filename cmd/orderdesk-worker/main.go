package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"orderdesk/internal/amqp"
	"orderdesk/internal/backend"
	"orderdesk/internal/cli"
	"orderdesk/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting orderdesk-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sender, err := backend.NewSender(ctx, backend.SenderType(cfg.MailBackend), logger)
	if err != nil {
		logger.Error("Failed to initialize mail backend", "error", err, "backend", cfg.MailBackend)
		os.Exit(1)
	}

	notifyWorker := worker.NewNotifyWorker(repo, sender, worker.Config{
		FromEmail:      cfg.DefaultFromEmail,
		OrderCreatedTo: cfg.OrderCreatedTo,
		OrderCreatedCc: cfg.OrderCreatedCc,
		BaseURL:        cfg.BaseURL,
		BatchSize:      cfg.NotifyBatchSize,
	})

	amqpClient, err := amqp.DialWithRetry(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, 10)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// Deliver anything that was queued while the worker was down.
	if err := notifyWorker.ProcessPending(ctx); err != nil {
		logger.Error("Startup pending scan failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeNotifications(gctx, notifyWorker.HandleMessage)
	})

	// Periodic scan recovers notifications whose queue message was lost.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.NotifyInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := notifyWorker.ProcessPending(gctx); err != nil {
					logger.Error("Periodic pending scan failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
