package messaging

import (
	"context"

	messaging "github.com/rodolfodevapp/eventshop-messaging-go/rabbitmq"
	"go.uber.org/zap"

	"github.com/pressroom-labs/catalog-allocation-go/internal/application"
)

type EventBusSet struct {
	OrdersConsumer    *messaging.RabbitMqEventBus
	WarehouseConsumer *messaging.RabbitMqEventBus
	Producer          *messaging.RabbitMqEventBus
}

// NewEventBusSet wires the three buses this service touches: orders.events
// and warehouse.events inbound, inventory.events outbound.
func NewEventBusSet(rabbitUri string) EventBusSet {
	ordersOpts := messaging.RabbitMqOptions{
		URI:          rabbitUri,
		ExchangeName: "orders.events",
		QueuePrefix:  "allocation.orders-events.v1",
		Prefetch:     32,
		RetryDelayMs: 30000,
	}
	warehouseOpts := messaging.RabbitMqOptions{
		URI:          rabbitUri,
		ExchangeName: "warehouse.events",
		QueuePrefix:  "allocation.warehouse-events.v1",
		Prefetch:     32,
		RetryDelayMs: 30000,
	}
	producerOpts := messaging.RabbitMqOptions{
		URI:          rabbitUri,
		ExchangeName: "inventory.events",
		QueuePrefix:  "allocation.dispatcher.v1",
		Prefetch:     32,
		RetryDelayMs: 30000,
	}

	return EventBusSet{
		OrdersConsumer:    messaging.NewRabbitMqEventBus(ordersOpts, nil, nil),
		WarehouseConsumer: messaging.NewRabbitMqEventBus(warehouseOpts, nil, nil),
		Producer:          messaging.NewRabbitMqEventBus(producerOpts, nil, nil),
	}
}

func RegisterOrderSubscriptions(
	ctx context.Context,
	bus *messaging.RabbitMqEventBus,
	log *zap.Logger,
	orderCancelledHandler application.EventHandler,
	orderShippedHandler application.EventHandler,
) error {
	bus.Subscribe("OrderCancelledEvent", orderCancelledHandler)
	bus.Subscribe("OrderRejectedEvent", orderCancelledHandler)
	bus.Subscribe("OrderShippedEvent", orderShippedHandler)

	if err := bus.StartConsumers(ctx); err != nil {
		log.Error("failed to start orders consumers", zap.Error(err))
		return err
	}
	return nil
}

func RegisterWarehouseSubscriptions(
	ctx context.Context,
	bus *messaging.RabbitMqEventBus,
	log *zap.Logger,
	stockReceivedHandler application.EventHandler,
) error {
	bus.Subscribe("StockReceived", stockReceivedHandler)

	if err := bus.StartConsumers(ctx); err != nil {
		log.Error("failed to start warehouse consumers", zap.Error(err))
		return err
	}
	return nil
}
