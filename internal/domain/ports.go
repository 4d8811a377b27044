package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryRecordRepository is the persisted stock store. Lookups return
// (nil, nil) when the pair has no record.
//
// AdjustReserved is the correctness contract of the whole core: the delta is
// applied with a conditional update that re-checks ATP (for positive deltas)
// and the reserved floor (for negative ones) against the current row, in the
// same statement. A failed condition surfaces as ErrInsufficientAtp.
type InventoryRecordRepository interface {
	Get(ctx context.Context, titleID, warehouseID uuid.UUID) (*InventoryRecord, error)
	ListByTitle(ctx context.Context, titleID uuid.UUID) ([]*InventoryRecord, error)
	Upsert(ctx context.Context, rec *InventoryRecord) error
	AdjustReserved(ctx context.Context, titleID, warehouseID uuid.UUID, delta int) (*InventoryRecord, error)
	// AdjustOnFulfill atomically removes qty from both currentStock and
	// reservedStock when a reservation ships.
	AdjustOnFulfill(ctx context.Context, titleID, warehouseID uuid.UUID, qty int) (*InventoryRecord, error)
	// ApplyReceipt adds received units in one conditional write, creating the
	// record on first receipt and rolling the moving weighted-average cost in
	// the same statement so a concurrent fulfillment is never overwritten.
	ApplyReceipt(ctx context.Context, titleID, warehouseID uuid.UUID, warehouseName string, qty int, unitCost decimal.Decimal) (*InventoryRecord, error)
}

type ReservationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	ListByTitle(ctx context.Context, titleID uuid.UUID) ([]*Reservation, error)
	ListActiveByTitle(ctx context.Context, titleID uuid.UUID) ([]*Reservation, error)
	ListActiveByOrderID(ctx context.Context, orderID uuid.UUID) ([]*Reservation, error)
	ListActiveExpiredBefore(ctx context.Context, cutoff time.Time) ([]*Reservation, error)
	Insert(ctx context.Context, r *Reservation) error
	// CloseIfActive flips an ACTIVE reservation into the given terminal
	// status and returns the closed row. A nil result means the reservation
	// is missing or already terminal: the caller lost the race and must not
	// touch stock counters.
	CloseIfActive(ctx context.Context, id uuid.UUID, status ReservationStatus, closedAt time.Time) (*Reservation, error)
	// ExtendIfActive moves the expiration of an ACTIVE reservation. Nil
	// result under the same contract as CloseIfActive.
	ExtendIfActive(ctx context.Context, id uuid.UUID, newExpiresAt time.Time) (*Reservation, error)
	// DeleteTerminalBefore purges RELEASED/EXPIRED/FULFILLED entries older
	// than the cutoff. Bookkeeping only, never a stock mutation.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int, error)
	DeleteAll(ctx context.Context) error
}

// StockMovementRepository stores the append-only ledger consumed by the
// valuation service. Listing returns movements in occurrence order.
type StockMovementRepository interface {
	Insert(ctx context.Context, m *StockMovement) error
	ListByTitleAndWarehouse(ctx context.Context, titleID, warehouseID uuid.UUID) ([]*StockMovement, error)
}

// OutboxRepository stores outbound events pending dispatch. Rows whose
// retryCount reaches maxRetry drop out of the pending batch and stay in the
// table for inspection.
type OutboxRepository interface {
	Insert(ctx context.Context, msg OutboxMessage) error
	GetPendingBatch(ctx context.Context, maxRetry, batchSize int) ([]OutboxMessage, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error
	// MarkFailed bumps the retry counter in place.
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

type OutboxMessage struct {
	ID             uuid.UUID
	Type           string
	PayloadJSON    string
	OccurredAtUtc  time.Time
	RetryCount     int
	ProcessedAtUtc *time.Time
}
