package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryRecord is the authoritative stock position of a title at one
// warehouse. ReservedStock is a derived aggregate: it must equal the sum of
// ACTIVE reservation quantities for the pair, and all changes to it go
// through the repository's conditional updates.
type InventoryRecord struct {
	ID            uuid.UUID
	TitleID       uuid.UUID
	WarehouseID   uuid.UUID
	WarehouseName string
	CurrentStock  int
	ReservedStock int
	MinStockLevel int
	ReorderPoint  int
	IncomingStock int
	AverageCost   decimal.Decimal
	UpdatedAtUtc  time.Time
}

func NewInventoryRecord(titleID, warehouseID uuid.UUID, warehouseName string) *InventoryRecord {
	return &InventoryRecord{
		ID:            uuid.New(),
		TitleID:       titleID,
		WarehouseID:   warehouseID,
		WarehouseName: warehouseName,
		AverageCost:   decimal.Zero,
		UpdatedAtUtc:  time.Now().UTC(),
	}
}

// Atp is the quantity that may be promised to new demand without touching
// the safety buffer. Never negative: a warehouse in deficit reports zero.
func (r *InventoryRecord) Atp() int {
	atp := r.CurrentStock - r.ReservedStock - r.MinStockLevel + r.IncomingStock
	if atp < 0 {
		return 0
	}
	return atp
}

func (r *InventoryRecord) CanReserve(qty int) bool {
	return qty > 0 && qty <= r.Atp()
}

// ApplyReceipt adds received units and recomputes the moving weighted
// average cost across the old on-hand value and the new receipt.
func (r *InventoryRecord) ApplyReceipt(qty int, unitCost decimal.Decimal) {
	if qty <= 0 {
		return
	}
	oldQty := decimal.NewFromInt(int64(r.CurrentStock))
	newQty := decimal.NewFromInt(int64(qty))
	totalQty := oldQty.Add(newQty)
	if totalQty.IsPositive() {
		oldValue := r.AverageCost.Mul(oldQty)
		newValue := unitCost.Mul(newQty)
		r.AverageCost = oldValue.Add(newValue).DivRound(totalQty, 4)
	}
	r.CurrentStock += qty
	r.UpdatedAtUtc = time.Now().UTC()
}
