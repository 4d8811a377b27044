package application

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
	"go.uber.org/zap"
)

type EventHandler interface {
	Handle(ctx context.Context, ev primitives.Event) error
}

// OrderCancelledHandler releases every hold placed for the cancelled order.

type OrderCancelledHandler struct {
	reservations *ReservationService
	log          *zap.Logger
}

func NewOrderCancelledHandler(reservations *ReservationService, log *zap.Logger) *OrderCancelledHandler {
	return &OrderCancelledHandler{reservations: reservations, log: log}
}

func (h *OrderCancelledHandler) Handle(ctx context.Context, ev primitives.Event) error {
	env, ok := ev.(*primitives.IntegrationEventEnvelope)
	if !ok {
		h.log.Warn("order cancelled handler: unexpected event", zap.String("type", typeNameOf(ev)))
		return nil
	}
	if env.Type != "OrderCancelledEvent" && env.Type != "OrderRejectedEvent" {
		return nil
	}

	var payload struct {
		OrderID uuid.UUID `json:"orderId"`
		Reason  string    `json:"reason"`
	}
	if err := json.Unmarshal([]byte(env.PayloadJSON), &payload); err != nil {
		h.log.Error("order cancelled handler: bad payload", zap.Error(err))
		return nil
	}
	if payload.OrderID == uuid.Nil {
		h.log.Warn("order cancelled handler: missing orderId")
		return nil
	}

	reason := payload.Reason
	if reason == "" {
		reason = "order cancelled"
	}
	released, err := h.reservations.ReleaseByOrder(ctx, payload.OrderID, reason)
	if err != nil {
		return err
	}
	h.log.Info("order cancellation processed",
		zap.String("orderId", payload.OrderID.String()),
		zap.Int("released", released))
	return nil
}

// OrderShippedHandler consumes every hold placed for the shipped order.

type OrderShippedHandler struct {
	reservations *ReservationService
	log          *zap.Logger
}

func NewOrderShippedHandler(reservations *ReservationService, log *zap.Logger) *OrderShippedHandler {
	return &OrderShippedHandler{reservations: reservations, log: log}
}

func (h *OrderShippedHandler) Handle(ctx context.Context, ev primitives.Event) error {
	env, ok := ev.(*primitives.IntegrationEventEnvelope)
	if !ok {
		h.log.Warn("order shipped handler: unexpected event", zap.String("type", typeNameOf(ev)))
		return nil
	}
	if env.Type != "OrderShippedEvent" {
		return nil
	}

	var payload struct {
		OrderID uuid.UUID `json:"orderId"`
	}
	if err := json.Unmarshal([]byte(env.PayloadJSON), &payload); err != nil {
		h.log.Error("order shipped handler: bad payload", zap.Error(err))
		return nil
	}
	if payload.OrderID == uuid.Nil {
		h.log.Warn("order shipped handler: missing orderId")
		return nil
	}

	fulfilled, err := h.reservations.FulfillByOrder(ctx, payload.OrderID)
	if err != nil {
		return err
	}
	h.log.Info("order shipment processed",
		zap.String("orderId", payload.OrderID.String()),
		zap.Int("fulfilled", fulfilled))
	return nil
}
