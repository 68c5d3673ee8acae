package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/genba-erp/genba-erp/internal/observability"
	"github.com/genba-erp/genba-erp/internal/webhooks"
)

// WebhookDeliverJob posts queued events to the configured endpoint.
type WebhookDeliverJob struct {
	sender  *webhooks.Sender
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewWebhookDeliverJob builds the delivery job.
func NewWebhookDeliverJob(sender *webhooks.Sender, metrics *observability.Metrics, logger *slog.Logger) *WebhookDeliverJob {
	return &WebhookDeliverJob{sender: sender, metrics: metrics, logger: logger}
}

// Handle delivers one event. Failures are logged and dropped: the task is
// enqueued with MaxRetry 0 and returning SkipRetry keeps it that way even if
// the enqueue options ever change.
func (j *WebhookDeliverJob) Handle(ctx context.Context, t *asynq.Task) error {
	var evt webhooks.Event
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		j.logger.Error("webhook payload unreadable", slog.Any("error", err))
		return asynq.SkipRetry
	}
	if err := j.sender.Send(ctx, evt); err != nil {
		j.logger.Warn("webhook delivery dropped",
			slog.String("event", string(evt.EventType)),
			slog.String("event_id", evt.ID),
			slog.Any("error", err))
		j.metrics.CountWebhookFailure()
		return asynq.SkipRetry
	}
	j.logger.Debug("webhook delivered",
		slog.String("event", string(evt.EventType)),
		slog.String("event_id", evt.ID))
	return nil
}
