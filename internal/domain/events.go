package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
	"github.com/shopspring/decimal"
)

// =========== Inbound event payloads ===========

// StockReceived (from warehouse.events): units arrived at a warehouse.
type StockReceivedPayload struct {
	TitleID       uuid.UUID       `json:"titleId"`
	WarehouseID   uuid.UUID       `json:"warehouseId"`
	WarehouseName string          `json:"warehouseName"`
	Quantity      int             `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unitCost"`
	Reference     string          `json:"reference"`
	ReceivedAtUtc time.Time       `json:"receivedAtUtc"`
}

// OrderCancelled (from orders.events): release the order's holds.
type OrderCancelledPayload struct {
	OrderID    uuid.UUID `json:"orderId"`
	CustomerID uuid.UUID `json:"customerId"`
	Reason     string    `json:"reason"`
}

// OrderShipped (from orders.events): consume the order's holds.
type OrderShippedPayload struct {
	OrderID      uuid.UUID `json:"orderId"`
	ShippedAtUtc time.Time `json:"shippedAtUtc"`
}

// =========== Outbound events: allocation core -> others ===========

type InventoryReservedEvent struct {
	primitives.BaseEvent
	ReservationID uuid.UUID `json:"reservationId"`
	TitleID       uuid.UUID `json:"titleId"`
	WarehouseID   uuid.UUID `json:"warehouseId"`
	Quantity      int       `json:"quantity"`
	OrderID       uuid.UUID `json:"orderId"`
	CustomerID    uuid.UUID `json:"customerId"`
	ExpiresAtUtc  time.Time `json:"expiresAtUtc"`
	ReservedAtUtc time.Time `json:"reservedAtUtc"`
}

func NewInventoryReservedEvent(r *Reservation) *InventoryReservedEvent {
	ev := &InventoryReservedEvent{
		BaseEvent:     primitives.NewBaseEvent(),
		ReservationID: r.ID,
		TitleID:       r.TitleID,
		WarehouseID:   r.WarehouseID,
		Quantity:      r.Quantity,
		OrderID:       r.OrderID,
		CustomerID:    r.CustomerID,
		ExpiresAtUtc:  r.ExpiresAtUtc,
		ReservedAtUtc: time.Now().UTC(),
	}
	ev.SetRoutingKey("InventoryReserved")
	return ev
}

// ReservationClosedEvent covers every terminal transition; Status tells
// subscribers whether the hold was released, expired or fulfilled.
type ReservationClosedEvent struct {
	primitives.BaseEvent
	ReservationID uuid.UUID `json:"reservationId"`
	TitleID       uuid.UUID `json:"titleId"`
	WarehouseID   uuid.UUID `json:"warehouseId"`
	Quantity      int       `json:"quantity"`
	OrderID       uuid.UUID `json:"orderId"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason"`
	ClosedAtUtc   time.Time `json:"closedAtUtc"`
}

func NewReservationClosedEvent(r *Reservation, reason string) *ReservationClosedEvent {
	ev := &ReservationClosedEvent{
		BaseEvent:     primitives.NewBaseEvent(),
		ReservationID: r.ID,
		TitleID:       r.TitleID,
		WarehouseID:   r.WarehouseID,
		Quantity:      r.Quantity,
		OrderID:       r.OrderID,
		Status:        string(r.Status),
		Reason:        reason,
		ClosedAtUtc:   time.Now().UTC(),
	}
	ev.SetRoutingKey("ReservationClosed")
	return ev
}

// CatalogStockAdjustedEvent keeps catalog and search projections in step
// with the authoritative counters.
type CatalogStockAdjustedEvent struct {
	primitives.BaseEvent
	TitleID       uuid.UUID `json:"titleId"`
	WarehouseID   uuid.UUID `json:"warehouseId"`
	CurrentStock  int       `json:"currentStock"`
	ReservedStock int       `json:"reservedStock"`
	AtpQuantity   int       `json:"atpQuantity"`
	Reason        string    `json:"reason"`
	OccurredAtUtc time.Time `json:"occurredAtUtc"`
}

func NewCatalogStockAdjustedEvent(rec *InventoryRecord, reason string) *CatalogStockAdjustedEvent {
	ev := &CatalogStockAdjustedEvent{
		BaseEvent:     primitives.NewBaseEvent(),
		TitleID:       rec.TitleID,
		WarehouseID:   rec.WarehouseID,
		CurrentStock:  rec.CurrentStock,
		ReservedStock: rec.ReservedStock,
		AtpQuantity:   rec.Atp(),
		Reason:        reason,
		OccurredAtUtc: time.Now().UTC(),
	}
	ev.SetRoutingKey("CatalogStockAdjusted")
	return ev
}
