package outbox

import (
	"context"
	"time"

	"github.com/rodolfodevapp/eventshop-messaging-go/core/abstractions"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
	"go.uber.org/zap"

	"github.com/pressroom-labs/catalog-allocation-go/internal/domain"
)

// Dispatcher drains pending outbox rows into the event bus. Failures bump
// the retry counter; rows past maxRetry are left for manual inspection.
type Dispatcher struct {
	repo      domain.OutboxRepository
	eventBus  abstractions.EventBus
	log       *zap.Logger
	maxRetry  int
	batchSize int
}

func NewDispatcher(
	repo domain.OutboxRepository,
	eventBus abstractions.EventBus,
	log *zap.Logger,
	maxRetry, batchSize int,
) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		eventBus:  eventBus,
		log:       log,
		maxRetry:  maxRetry,
		batchSize: batchSize,
	}
}

func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	msgs, err := d.repo.GetPendingBatch(ctx, d.maxRetry, d.batchSize)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	processed := 0
	for _, msg := range msgs {
		envelope := primitives.NewIntegrationEventEnvelope(msg.Type, msg.PayloadJSON)
		envelope.SetRoutingKey(msg.Type)

		if err := d.eventBus.Publish(ctx, &envelope); err != nil {
			d.log.Warn("outbox publish failed",
				zap.String("type", msg.Type),
				zap.Int("retryCount", msg.RetryCount),
				zap.Error(err))
			if err := d.repo.MarkFailed(ctx, msg.ID); err != nil {
				d.log.Error("outbox retry bump failed",
					zap.String("messageId", msg.ID.String()),
					zap.Error(err))
			}
			continue
		}

		if err := d.repo.MarkProcessed(ctx, msg.ID, time.Now().UTC()); err != nil {
			d.log.Error("outbox mark processed failed",
				zap.String("messageId", msg.ID.String()),
				zap.Error(err))
		}
		processed++
	}

	return processed, nil
}
