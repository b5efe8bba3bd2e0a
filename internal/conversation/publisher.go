package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/wolfman30/premiumcar-router/internal/flow"
	"github.com/wolfman30/premiumcar-router/pkg/logging"
)

// groupedSender is implemented by queues that can order and dedupe jobs
// per user.
type groupedSender interface {
	SendGrouped(ctx context.Context, body, groupID, dedupeID string) error
}

// Publisher enqueues inbound messages for asynchronous dispatch.
type Publisher struct {
	queue  queueClient
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue queueClient, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{queue: queue, logger: logger}
}

// Enqueue publishes one inbound message. Its signature matches the webhook
// handler's hand-off callback.
func (p *Publisher) Enqueue(ctx context.Context, in flow.Inbound) error {
	payload, body, err := encodePayload(in, time.Now())
	if err != nil {
		return err
	}

	if gs, ok := p.queue.(groupedSender); ok {
		err = gs.SendGrouped(ctx, body, in.UserID, in.MessageID)
	} else {
		err = p.queue.Send(ctx, body)
	}
	if err != nil {
		return fmt.Errorf("conversation: failed to enqueue job: %w", err)
	}

	p.logger.Debug("conversation job enqueued",
		"job_id", payload.ID,
		"message_id", in.MessageID,
		"event_type", payload.Inbound.EventType,
	)
	return nil
}
