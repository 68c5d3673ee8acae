// Package jobs runs background work over Asynq: webhook delivery, the
// nightly paid-leave expiry sweep and idempotency-key cleanup.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/genba-erp/genba-erp/internal/webhooks"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskWebhookDeliver posts one lifecycle event to the webhook endpoint.
	TaskWebhookDeliver = "webhook:deliver"
	// TaskLeaveExpireSweep expires overdue paid-leave grants.
	TaskLeaveExpireSweep = "leave:expire_sweep"
	// TaskIdempotencyCleanup prunes processed idempotency keys past retention.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// NewWebhookDeliverTask wraps an event payload into a task.
func NewWebhookDeliverTask(evt webhooks.Event) (*asynq.Task, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWebhookDeliver, data), nil
}

// NewLeaveExpireSweepTask builds the nightly sweep task. No payload.
func NewLeaveExpireSweepTask() *asynq.Task {
	return asynq.NewTask(TaskLeaveExpireSweep, nil)
}

// NewIdempotencyCleanupTask builds the nightly key-cleanup task. No payload.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}
