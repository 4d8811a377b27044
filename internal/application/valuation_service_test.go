package application

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressroom-labs/catalog-allocation-go/internal/domain"
)

func (e *testEnv) seedMovement(
	t *testing.T,
	titleID, warehouseID uuid.UUID,
	mtype domain.MovementType,
	qty int,
	unitCost string,
) {
	t.Helper()
	mv := domain.NewStockMovement(
		titleID, warehouseID, mtype, qty,
		decimal.RequireFromString(unitCost), "test")
	require.NoError(t, e.movements.Insert(context.Background(), mv))
}

func TestValueInventoryFifo(t *testing.T) {
	env := newTestEnv()
	titleID, warehouseID := uuid.New(), uuid.New()
	env.seedMovement(t, titleID, warehouseID, domain.MovementReceipt, 10, "5.00")
	env.seedMovement(t, titleID, warehouseID, domain.MovementReceipt, 10, "7.00")
	env.seedMovement(t, titleID, warehouseID, domain.MovementIssue, 5, "0")

	val, err := env.valuation.ValueInventory(
		context.Background(), titleID, warehouseID, domain.ValuationFifo)
	require.NoError(t, err)

	// FIFO consumes the oldest layer: 5@5.00 remain plus 10@7.00.
	assert.Equal(t, 15, val.OnHandQuantity)
	assert.True(t, val.TotalCost.Equal(decimal.RequireFromString("95")),
		"expected 95, got %s", val.TotalCost)
	require.Len(t, val.Layers, 2)
	assert.Equal(t, 5, val.Layers[0].Quantity)
	assert.True(t, val.Layers[0].UnitCost.Equal(decimal.RequireFromString("5.00")))
}

func TestValueInventoryLifo(t *testing.T) {
	env := newTestEnv()
	titleID, warehouseID := uuid.New(), uuid.New()
	env.seedMovement(t, titleID, warehouseID, domain.MovementReceipt, 10, "5.00")
	env.seedMovement(t, titleID, warehouseID, domain.MovementReceipt, 10, "7.00")
	env.seedMovement(t, titleID, warehouseID, domain.MovementIssue, 5, "0")

	val, err := env.valuation.ValueInventory(
		context.Background(), titleID, warehouseID, domain.ValuationLifo)
	require.NoError(t, err)

	// LIFO consumes the newest layer: 10@5.00 plus 5@7.00 remain.
	assert.Equal(t, 15, val.OnHandQuantity)
	assert.True(t, val.TotalCost.Equal(decimal.RequireFromString("85")),
		"expected 85, got %s", val.TotalCost)
}

func TestValueInventoryWeightedAverage(t *testing.T) {
	env := newTestEnv()
	titleID, warehouseID := uuid.New(), uuid.New()
	env.seedMovement(t, titleID, warehouseID, domain.MovementReceipt, 10, "5.00")
	env.seedMovement(t, titleID, warehouseID, domain.MovementReceipt, 10, "7.00")
	env.seedMovement(t, titleID, warehouseID, domain.MovementIssue, 5, "0")

	val, err := env.valuation.ValueInventory(
		context.Background(), titleID, warehouseID, domain.ValuationWeightedAverage)
	require.NoError(t, err)

	// Average after both receipts is 6.00; the issue leaves 15 units.
	assert.Equal(t, 15, val.OnHandQuantity)
	assert.True(t, val.TotalCost.Equal(decimal.RequireFromString("90")),
		"expected 90, got %s", val.TotalCost)
	require.Len(t, val.Layers, 1)
	assert.True(t, val.UnitCost.Equal(decimal.RequireFromString("6")))
}

func TestValueInventoryEmptyLedger(t *testing.T) {
	env := newTestEnv()

	val, err := env.valuation.ValueInventory(
		context.Background(), uuid.New(), uuid.New(), domain.ValuationFifo)
	require.NoError(t, err)

	assert.Equal(t, 0, val.OnHandQuantity)
	assert.True(t, val.TotalCost.IsZero())
	assert.Empty(t, val.Layers)
}

func TestValueInventoryInconsistentLedger(t *testing.T) {
	env := newTestEnv()
	titleID, warehouseID := uuid.New(), uuid.New()
	env.seedMovement(t, titleID, warehouseID, domain.MovementReceipt, 5, "5.00")
	env.seedMovement(t, titleID, warehouseID, domain.MovementIssue, 10, "0")

	_, err := env.valuation.ValueInventory(
		context.Background(), titleID, warehouseID, domain.ValuationFifo)
	assert.Error(t, err)

	_, err = env.valuation.ValueInventory(
		context.Background(), titleID, warehouseID, domain.ValuationWeightedAverage)
	assert.Error(t, err)
}

func TestValueInventoryUnknownMethod(t *testing.T) {
	env := newTestEnv()

	_, err := env.valuation.ValueInventory(
		context.Background(), uuid.New(), uuid.New(), domain.ValuationMethod("SPECIFIC_ID"))
	assert.Error(t, err)
}
