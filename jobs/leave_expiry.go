package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/genba-erp/genba-erp/internal/paidleave"
)

// LeaveExpiryJob sweeps paid-leave grants past their expiry date.
type LeaveExpiryJob struct {
	service *paidleave.Service
	logger  *slog.Logger
}

// NewLeaveExpiryJob builds the nightly sweep job.
func NewLeaveExpiryJob(service *paidleave.Service, logger *slog.Logger) *LeaveExpiryJob {
	return &LeaveExpiryJob{service: service, logger: logger}
}

// Handle runs one sweep. The sweep is idempotent, so retries are safe.
func (j *LeaveExpiryJob) Handle(ctx context.Context, _ *asynq.Task) error {
	n, err := j.service.SweepExpired(ctx)
	if err != nil {
		j.logger.Error("leave expiry sweep failed", slog.Any("error", err))
		return err
	}
	j.logger.Info("leave expiry sweep finished", slog.Int64("expired_grants", n))
	return nil
}
