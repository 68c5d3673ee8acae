package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/genba-erp/genba-erp/internal/app"
	"github.com/genba-erp/genba-erp/internal/masterdata/employees"
	"github.com/genba-erp/genba-erp/internal/observability"
	"github.com/genba-erp/genba-erp/internal/paidleave"
	"github.com/genba-erp/genba-erp/internal/platform/db"
	"github.com/genba-erp/genba-erp/internal/shared"
	"github.com/genba-erp/genba-erp/internal/webhooks"
	"github.com/genba-erp/genba-erp/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)

	sender := webhooks.NewSender(cfg.WebhookURL)
	webhookJob := jobs.NewWebhookDeliverJob(sender, metrics, logger)

	employeesService := employees.NewService(employees.NewRepository(pool))
	leaveService := paidleave.NewService(logger, paidleave.NewRepository(pool), employeesService, auditLogger)
	leaveExpiryJob := jobs.NewLeaveExpiryJob(leaveService, logger)
	idempotencyCleanupJob := jobs.NewIdempotencyCleanupJob(shared.NewIdempotencyStore(pool), logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskWebhookDeliver, Handler: webhookJob.Handle},
			{Type: jobs.TaskLeaveExpireSweep, Handler: leaveExpiryJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: idempotencyCleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 17 * * *", Task: jobs.NewLeaveExpireSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 17 * * *", Task: jobs.NewIdempotencyCleanupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
