package application

import (
	"context"
	"encoding/json"

	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
	"go.uber.org/zap"

	"github.com/pressroom-labs/catalog-allocation-go/internal/domain"
)

// StockReceivedHandler intakes warehouse receipts: it creates the inventory
// record on first receipt, rolls the moving average cost, and appends a
// RECEIPT movement for the valuation ledger.
type StockReceivedHandler struct {
	records   domain.InventoryRecordRepository
	movements domain.StockMovementRepository
	outbox    OutboxWriter
	log       *zap.Logger
}

func NewStockReceivedHandler(
	records domain.InventoryRecordRepository,
	movements domain.StockMovementRepository,
	outbox OutboxWriter,
	log *zap.Logger,
) *StockReceivedHandler {
	return &StockReceivedHandler{
		records:   records,
		movements: movements,
		outbox:    outbox,
		log:       log,
	}
}

func (h *StockReceivedHandler) Handle(ctx context.Context, ev primitives.Event) error {
	env, ok := ev.(*primitives.IntegrationEventEnvelope)
	if !ok {
		h.log.Warn("stock received handler: unexpected event", zap.String("type", typeNameOf(ev)))
		return nil
	}
	if env.Type != "StockReceived" {
		return nil
	}

	var payload domain.StockReceivedPayload
	if err := json.Unmarshal([]byte(env.PayloadJSON), &payload); err != nil {
		h.log.Error("stock received handler: bad payload", zap.Error(err))
		return nil
	}
	if payload.Quantity <= 0 {
		h.log.Warn("stock received handler: non-positive quantity",
			zap.Int("quantity", payload.Quantity))
		return nil
	}

	// One conditional write: a fulfillment committing at the same moment
	// keeps its decrement, and first receipts create the record.
	rec, err := h.records.ApplyReceipt(
		ctx,
		payload.TitleID,
		payload.WarehouseID,
		payload.WarehouseName,
		payload.Quantity,
		payload.UnitCost,
	)
	if err != nil {
		return err
	}

	mv := domain.NewStockMovement(
		payload.TitleID,
		payload.WarehouseID,
		domain.MovementReceipt,
		payload.Quantity,
		payload.UnitCost,
		payload.Reference,
	)
	if err := h.movements.Insert(ctx, mv); err != nil {
		return err
	}

	h.log.Info("stock receipt applied",
		zap.String("titleId", payload.TitleID.String()),
		zap.String("warehouseId", payload.WarehouseID.String()),
		zap.Int("quantity", payload.Quantity))

	return h.outbox.Enqueue(ctx, domain.NewCatalogStockAdjustedEvent(rec, "STOCK_RECEIVED"))
}
