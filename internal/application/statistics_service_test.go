package application

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAllocationStatistics(t *testing.T) {
	env := newTestEnv()
	titleID, warehouseID := uuid.New(), uuid.New()
	env.seedRecord(t, titleID, warehouseID, "Central", 1000, 0, 0)

	ctx := context.Background()
	heavy, light := uuid.New(), uuid.New()

	for _, qty := range []int{40, 30} {
		result, err := env.reservation.Reserve(ctx, ReserveCommand{
			TitleID:     titleID,
			WarehouseID: warehouseID,
			Quantity:    qty,
			CustomerID:  heavy,
		})
		require.NoError(t, err)
		require.True(t, result.Success)
	}

	released, err := env.reservation.Reserve(ctx, ReserveCommand{
		TitleID:     titleID,
		WarehouseID: warehouseID,
		Quantity:    10,
		CustomerID:  light,
	})
	require.NoError(t, err)
	_, err = env.reservation.Release(ctx, released.Reservation.ID, "test")
	require.NoError(t, err)

	stats, err := env.statistics.GetAllocationStatistics(ctx, titleID)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalReservations)
	assert.Equal(t, 2, stats.ActiveReservations)
	assert.Equal(t, 70, stats.TotalReservedQuantity)

	require.Len(t, stats.TopCustomers, 2)
	assert.Equal(t, heavy, stats.TopCustomers[0].CustomerID)
	assert.Equal(t, 70, stats.TopCustomers[0].TotalQuantity)
	assert.Equal(t, 2, stats.TopCustomers[0].ReservationCount)
	assert.Equal(t, light, stats.TopCustomers[1].CustomerID)
}

func TestGetAllocationStatisticsEmpty(t *testing.T) {
	env := newTestEnv()

	stats, err := env.statistics.GetAllocationStatistics(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.TotalReservations)
	assert.Equal(t, 0, stats.ActiveReservations)
	assert.Empty(t, stats.TopCustomers)
}

func TestTopCustomersCapped(t *testing.T) {
	env := newTestEnv()
	titleID, warehouseID := uuid.New(), uuid.New()
	env.seedRecord(t, titleID, warehouseID, "Central", 1000, 0, 0)

	ctx := context.Background()
	for i := 0; i < 8; i++ {
		result, err := env.reservation.Reserve(ctx, ReserveCommand{
			TitleID:     titleID,
			WarehouseID: warehouseID,
			Quantity:    i + 1,
			CustomerID:  uuid.New(),
		})
		require.NoError(t, err)
		require.True(t, result.Success)
	}

	stats, err := env.statistics.GetAllocationStatistics(ctx, titleID)
	require.NoError(t, err)

	assert.Len(t, stats.TopCustomers, topCustomerLimit)
	// Descending by quantity.
	assert.Equal(t, 8, stats.TopCustomers[0].TotalQuantity)
	assert.Equal(t, 4, stats.TopCustomers[topCustomerLimit-1].TotalQuantity)
}
