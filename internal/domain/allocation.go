package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationRequest asks the planner to promise Quantity units of a title,
// split across one or more warehouses.
type AllocationRequest struct {
	TitleID               uuid.UUID
	Quantity              int
	OrderID               uuid.UUID
	CustomerID            uuid.UUID
	CustomerTier          CustomerTier
	PreferredWarehouseIDs []uuid.UUID
	// MaxWarehouses caps shipment fragmentation; zero means no cap.
	MaxWarehouses int
	ExpiresAtUtc  *time.Time
}

// WarehouseAllocation is one warehouse's share of an allocation, backed by a
// reservation that already exists by the time the result is returned.
type WarehouseAllocation struct {
	WarehouseID   uuid.UUID
	WarehouseName string
	Quantity      int
	ReservationID uuid.UUID
	UnitCost      decimal.Decimal
}

type AllocationResult struct {
	Success             bool
	TitleID             uuid.UUID
	RequestedQuantity   int
	TotalAllocated      int
	UnallocatedQuantity int
	Allocations         []WarehouseAllocation
	Recommendations     []string
}

// ReservationResult reports one reserve attempt. An ATP shortfall is a
// routine business outcome, so it lands here and not in an error.
type ReservationResult struct {
	Success      bool
	Message      string
	Reservation  *Reservation
	RemainingAtp int
}

type ReleaseResult struct {
	Success          bool
	Message          string
	ReleasedQuantity int
}

type ExtendResult struct {
	Success     bool
	Message     string
	Reservation *Reservation
}

type FulfillResult struct {
	Success           bool
	Message           string
	FulfilledQuantity int
}

type CleanupResult struct {
	Cleaned          int
	ReleasedQuantity int
	Details          []string
}

type CustomerReservationSummary struct {
	CustomerID       uuid.UUID
	ReservationCount int
	TotalQuantity    int
}

type AllocationStatistics struct {
	TitleID               uuid.UUID
	TotalReservations     int
	ActiveReservations    int
	TotalReservedQuantity int
	TopCustomers          []CustomerReservationSummary
}
