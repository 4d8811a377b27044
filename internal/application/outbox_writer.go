package application

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"

	"github.com/pressroom-labs/catalog-allocation-go/internal/domain"
)

// OutboxWriter stores outbound events next to the state change that caused
// them; the dispatcher ships them to the broker later.
type OutboxWriter interface {
	Enqueue(ctx context.Context, ev primitives.Event) error
}

type outboxWriter struct {
	repo domain.OutboxRepository
}

func NewOutboxWriter(repo domain.OutboxRepository) OutboxWriter {
	return &outboxWriter{repo: repo}
}

func (w *outboxWriter) Enqueue(ctx context.Context, ev primitives.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal outbox event: %w", err)
	}

	eventType := ev.GetRoutingKey()
	if eventType == "" {
		eventType = typeNameOf(ev)
	}

	msg := domain.OutboxMessage{
		ID:            uuid.New(),
		Type:          eventType,
		PayloadJSON:   string(payload),
		OccurredAtUtc: time.Now().UTC(),
	}
	return w.repo.Insert(ctx, msg)
}

func typeNameOf(ev primitives.Event) string {
	if ev == nil {
		return ""
	}
	t := reflect.TypeOf(ev)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
