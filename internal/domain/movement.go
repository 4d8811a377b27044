package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementReceipt MovementType = "RECEIPT"
	MovementIssue   MovementType = "ISSUE"
)

// StockMovement is one entry in the append-only movement ledger the
// valuation subsystem replays. Receipts carry the purchase unit cost;
// issues are costed by the valuation method at read time.
type StockMovement struct {
	ID            uuid.UUID
	TitleID       uuid.UUID
	WarehouseID   uuid.UUID
	Type          MovementType
	Quantity      int
	UnitCost      decimal.Decimal
	Reference     string
	OccurredAtUtc time.Time
}

func NewStockMovement(
	titleID, warehouseID uuid.UUID,
	mtype MovementType,
	quantity int,
	unitCost decimal.Decimal,
	reference string,
) *StockMovement {
	return &StockMovement{
		ID:            uuid.New(),
		TitleID:       titleID,
		WarehouseID:   warehouseID,
		Type:          mtype,
		Quantity:      quantity,
		UnitCost:      unitCost,
		Reference:     reference,
		OccurredAtUtc: time.Now().UTC(),
	}
}

type ValuationMethod string

const (
	ValuationFifo            ValuationMethod = "FIFO"
	ValuationLifo            ValuationMethod = "LIFO"
	ValuationWeightedAverage ValuationMethod = "WEIGHTED_AVERAGE"
)

// CostLayer is a surviving slice of a receipt after issues have consumed
// part of it.
type CostLayer struct {
	Quantity int
	UnitCost decimal.Decimal
}

type InventoryValuation struct {
	TitleID        uuid.UUID
	WarehouseID    uuid.UUID
	Method         ValuationMethod
	OnHandQuantity int
	TotalCost      decimal.Decimal
	UnitCost       decimal.Decimal
	Layers         []CostLayer
	ValuedAtUtc    time.Time
}
