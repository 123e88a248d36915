package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/leadboard/internal/database"
	"github.com/hugh/leadboard/internal/mail"
	"github.com/hugh/leadboard/internal/tasks"
	"github.com/hugh/leadboard/pkg/config"
	"github.com/hugh/leadboard/pkg/queue"
	"github.com/hugh/leadboard/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting leadboard worker", "concurrency", cfg.Worker.Concurrency)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	nextPurge, err := util.NextCronTime(cfg.Worker.ResetPurgeCron, time.Now())
	if err != nil {
		logger.Error("invalid reset token purge schedule", "cron", cfg.Worker.ResetPurgeCron, "error", err)
		os.Exit(1)
	}

	srv := queue.NewServer(&cfg.Redis, cfg.Worker.Concurrency)
	handler := tasks.NewHandler(db, logger, mail.NewSMTPSender(cfg.Mail))

	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	scheduler := queue.NewScheduler(&cfg.Redis)
	entryID, err := scheduler.Register(cfg.Worker.ResetPurgeCron, tasks.NewPurgeResetTokensTask(), asynq.Queue("low"))
	if err != nil {
		logger.Error("failed to schedule reset token purge", "error", err)
		os.Exit(1)
	}
	logger.Info("reset token purge scheduled", "entry_id", entryID, "cron", cfg.Worker.ResetPurgeCron, "next_run", nextPurge)

	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		scheduler.Shutdown()
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	<-ctx.Done()

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("worker stopped")
}
