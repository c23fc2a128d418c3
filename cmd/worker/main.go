package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/app"
	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
	"github.com/meridian-erp/meridian-erp/internal/loans"
	"github.com/meridian-erp/meridian-erp/internal/platform/cache"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/sales"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	idempotencyStore := shared.NewIdempotencyStore(pool)
	auditLogger := shared.NewAuditLogger(pool)
	metrics := jobmetrics.NewMetrics(nil)

	salesService := sales.NewService(sales.NewRepository(pool), idempotencyStore, auditLogger, nil, redisClient, cfg.DueReportCacheTTL)
	loanService := loans.NewService(loans.NewRepository(pool), idempotencyStore, auditLogger)

	mailer, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := mailer.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	dueScan := jobs.NewDueScanHandler(jobs.DueScanDeps{
		Logger:   logger,
		Sales:    salesService,
		Mailer:   mailer,
		Metrics:  metrics,
		NotifyTo: cfg.DueNotifyEmail,
	})
	installmentScan := jobs.NewInstallmentScanHandler(jobs.InstallmentScanDeps{
		Logger:  logger,
		Loans:   loanService,
		Metrics: metrics,
	})

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDueScan, Handler: dueScan},
			{Type: jobs.TaskInstallmentScan, Handler: installmentScan},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.DueScanCron, Task: jobs.NewDueScanTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.LoanScanCron, Task: jobs.NewInstallmentScanTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
