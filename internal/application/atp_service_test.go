package application

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressroom-labs/catalog-allocation-go/internal/domain"
)

func TestCalculateAtp(t *testing.T) {
	env := newTestEnv()
	titleID, warehouseID := uuid.New(), uuid.New()
	env.seedRecord(t, titleID, warehouseID, "Central", 150, 20, 25)

	atp, err := env.atp.CalculateAtp(context.Background(), titleID, warehouseID)
	require.NoError(t, err)

	assert.Equal(t, 105, atp.AtpQuantity)
	assert.Equal(t, 150, atp.CurrentStock)
	assert.Equal(t, 20, atp.ReservedStock)
}

func TestCalculateAtpMissingRecord(t *testing.T) {
	env := newTestEnv()

	_, err := env.atp.CalculateAtp(context.Background(), uuid.New(), uuid.New())

	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestCalculateMultiWarehouseAtp(t *testing.T) {
	env := newTestEnv()
	titleID := uuid.New()
	env.seedRecord(t, titleID, uuid.New(), "Central", 150, 20, 25)
	env.seedRecord(t, titleID, uuid.New(), "North", 60, 0, 10)
	env.seedRecord(t, uuid.New(), uuid.New(), "Other title", 500, 0, 0)

	multi, err := env.atp.CalculateMultiWarehouseAtp(context.Background(), titleID)
	require.NoError(t, err)

	assert.Len(t, multi.WarehouseAtps, 2)
	assert.Equal(t, 155, multi.TotalAtp)
	assert.False(t, multi.AggregatedAtUtc.IsZero())
}

func TestCalculateMultiWarehouseAtpNoInventory(t *testing.T) {
	env := newTestEnv()

	// No stock anywhere is a valid outcome, not an error.
	multi, err := env.atp.CalculateMultiWarehouseAtp(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Empty(t, multi.WarehouseAtps)
	assert.Equal(t, 0, multi.TotalAtp)
}
