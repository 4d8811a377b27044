package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pressroom-labs/catalog-allocation-go/internal/domain"
	"github.com/pressroom-labs/catalog-allocation-go/internal/infrastructure/memory"
)

type testEnv struct {
	records      *memory.InventoryRecordRepository
	reservations *memory.ReservationRepository
	movements    *memory.StockMovementRepository
	outbox       *memory.OutboxRepository

	atp         *AtpService
	reservation *ReservationService
	allocation  *AllocationService
	sweeper     *SweeperService
	statistics  *StatisticsService
	valuation   *ValuationService
}

func newTestEnv() *testEnv {
	log := zap.NewNop()
	env := &testEnv{
		records:      memory.NewInventoryRecordRepository(),
		reservations: memory.NewReservationRepository(),
		movements:    memory.NewStockMovementRepository(),
		outbox:       memory.NewOutboxRepository(),
	}
	env.atp = NewAtpService(env.records)
	env.reservation = NewReservationService(
		env.records,
		env.reservations,
		env.movements,
		NewOutboxWriter(env.outbox),
		log,
		48*time.Hour,
	)
	env.allocation = NewAllocationService(env.atp, env.reservation, log)
	env.sweeper = NewSweeperService(env.reservations, env.reservation, log)
	env.statistics = NewStatisticsService(env.reservations)
	env.valuation = NewValuationService(env.movements)
	return env
}

func (e *testEnv) seedRecord(
	t *testing.T,
	titleID, warehouseID uuid.UUID,
	name string,
	current, reserved, minLevel int,
) {
	t.Helper()
	rec := domain.NewInventoryRecord(titleID, warehouseID, name)
	rec.CurrentStock = current
	rec.ReservedStock = reserved
	rec.MinStockLevel = minLevel
	rec.AverageCost = decimal.NewFromFloat(12.50)
	require.NoError(t, e.records.Upsert(context.Background(), rec))
}

func (e *testEnv) reservedStock(t *testing.T, titleID, warehouseID uuid.UUID) int {
	t.Helper()
	rec, err := e.records.Get(context.Background(), titleID, warehouseID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	return rec.ReservedStock
}

func (e *testEnv) currentStock(t *testing.T, titleID, warehouseID uuid.UUID) int {
	t.Helper()
	rec, err := e.records.Get(context.Background(), titleID, warehouseID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	return rec.CurrentStock
}

// activeReservedSum recomputes reservedStock from the ledger so tests can
// assert the two stay in step.
func (e *testEnv) activeReservedSum(t *testing.T, titleID, warehouseID uuid.UUID) int {
	t.Helper()
	active, err := e.reservations.ListActiveByTitle(context.Background(), titleID)
	require.NoError(t, err)
	sum := 0
	for _, res := range active {
		if res.WarehouseID == warehouseID {
			sum += res.Quantity
		}
	}
	return sum
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
