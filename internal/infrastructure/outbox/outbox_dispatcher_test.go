package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/rodolfodevapp/eventshop-messaging-go/core/abstractions"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pressroom-labs/catalog-allocation-go/internal/domain"
	"github.com/pressroom-labs/catalog-allocation-go/internal/infrastructure/memory"
)

type stubEventBus struct {
	published []primitives.Event
	failNext  bool
}

func (b *stubEventBus) Publish(_ context.Context, ev primitives.Event) error {
	if b.failNext {
		b.failNext = false
		return errors.New("broker unavailable")
	}
	b.published = append(b.published, ev)
	return nil
}

func (b *stubEventBus) Subscribe(string, abstractions.EventHandler) abstractions.EventBus {
	return b
}

func (b *stubEventBus) SendCommand(context.Context, primitives.Command) error {
	return nil
}

func TestDispatchOnceMarksProcessed(t *testing.T) {
	repo := memory.NewOutboxRepository()
	bus := &stubEventBus{}
	d := NewDispatcher(repo, bus, zap.NewNop(), 5, 100)

	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, domain.OutboxMessage{
		Type:        "InventoryReserved",
		PayloadJSON: `{"quantity":10}`,
	}))

	processed, err := d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Len(t, bus.published, 1)

	msgs := repo.Messages()
	require.Len(t, msgs, 1)
	assert.NotNil(t, msgs[0].ProcessedAtUtc)

	// Nothing left pending for the next tick.
	pending, err := repo.GetPendingBatch(ctx, 5, 100)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDispatchOnceBumpsRetryOnPublishFailure(t *testing.T) {
	repo := memory.NewOutboxRepository()
	bus := &stubEventBus{failNext: true}
	d := NewDispatcher(repo, bus, zap.NewNop(), 5, 100)

	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, domain.OutboxMessage{
		Type:        "ReservationClosed",
		PayloadJSON: `{}`,
	}))

	processed, err := d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)

	msgs := repo.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, 1, msgs[0].RetryCount)
	assert.Nil(t, msgs[0].ProcessedAtUtc)

	// The broker recovers; the same row is retried and shipped.
	processed, err = d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
}

func TestDispatchSkipsRowsPastMaxRetry(t *testing.T) {
	repo := memory.NewOutboxRepository()
	bus := &stubEventBus{}
	d := NewDispatcher(repo, bus, zap.NewNop(), 2, 100)

	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, domain.OutboxMessage{
		Type:        "CatalogStockAdjusted",
		PayloadJSON: `{}`,
		RetryCount:  2,
	}))

	processed, err := d.DispatchOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, processed)
	assert.Empty(t, bus.published, "rows at the retry ceiling are left for inspection")
}
