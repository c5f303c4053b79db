package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"submanager/internal/amqp"
	"submanager/internal/config"
	"submanager/internal/mirror"
	gsheet "submanager/internal/mirror/google"
	"submanager/internal/mirror/memory"
	"submanager/internal/store"
	"submanager/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting submanager-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	records, err := store.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open record store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer records.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Without a spreadsheet the rows land in the in-process mirror, which
	// keeps the pipeline testable in sheet-less deployments.
	var appender mirror.RowAppender
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		appender = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		appender = memory.New()
		logger.Info("Google Sheets disabled, using in-memory mirror")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirrorWorker := worker.NewMirrorWorker(records, appender, cfg.MirrorBatchSize)

	// Catch up on rows missed while the worker was down.
	logger.Info("Performing startup sweep")
	if err := mirrorWorker.SweepPending(ctx); err != nil {
		logger.Error("Startup sweep failed", "error", err)
		// Keep going; the periodic sweep retries.
	}

	sched, err := mirrorWorker.ScheduleDailySweep(ctx, cfg.MirrorDailySpec)
	if err != nil {
		logger.Error("Failed to schedule daily sweep", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeRecordEvents(gctx, func(event *amqp.RecordEvent) error {
			return mirrorWorker.HandleRecordEvent(gctx, event)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.MirrorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := mirrorWorker.SweepPending(gctx); err != nil {
					logger.Error("Periodic sweep failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
