package domain

import (
	"time"

	"github.com/google/uuid"
)

// WarehouseAtp is a point-in-time availability snapshot for one warehouse.
type WarehouseAtp struct {
	TitleID       uuid.UUID
	WarehouseID   uuid.UUID
	WarehouseName string
	AtpQuantity   int
	CurrentStock  int
	ReservedStock int
	MinStockLevel int
	IncomingStock int
}

// MultiWarehouseAtp fans WarehouseAtp out across every warehouse holding the
// title. It is a fresh read, never cached: stock changes too often.
type MultiWarehouseAtp struct {
	TitleID         uuid.UUID
	WarehouseAtps   []WarehouseAtp
	TotalAtp        int
	AggregatedAtUtc time.Time
}

func AtpFromRecord(rec *InventoryRecord) WarehouseAtp {
	return WarehouseAtp{
		TitleID:       rec.TitleID,
		WarehouseID:   rec.WarehouseID,
		WarehouseName: rec.WarehouseName,
		AtpQuantity:   rec.Atp(),
		CurrentStock:  rec.CurrentStock,
		ReservedStock: rec.ReservedStock,
		MinStockLevel: rec.MinStockLevel,
		IncomingStock: rec.IncomingStock,
	}
}
