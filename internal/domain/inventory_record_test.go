package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAtp(t *testing.T) {
	rec := NewInventoryRecord(uuid.New(), uuid.New(), "Central")
	rec.CurrentStock = 150
	rec.ReservedStock = 20
	rec.MinStockLevel = 25

	assert.Equal(t, 105, rec.Atp())
}

func TestAtpNeverNegative(t *testing.T) {
	rec := NewInventoryRecord(uuid.New(), uuid.New(), "Central")
	rec.CurrentStock = 10
	rec.ReservedStock = 8
	rec.MinStockLevel = 25

	assert.Equal(t, 0, rec.Atp())
}

func TestAtpIncludesIncomingStock(t *testing.T) {
	rec := NewInventoryRecord(uuid.New(), uuid.New(), "Central")
	rec.CurrentStock = 10
	rec.ReservedStock = 5
	rec.MinStockLevel = 10
	rec.IncomingStock = 20

	assert.Equal(t, 15, rec.Atp())
}

func TestCanReserve(t *testing.T) {
	rec := NewInventoryRecord(uuid.New(), uuid.New(), "Central")
	rec.CurrentStock = 100
	rec.MinStockLevel = 10

	assert.True(t, rec.CanReserve(90))
	assert.False(t, rec.CanReserve(91))
	assert.False(t, rec.CanReserve(0))
	assert.False(t, rec.CanReserve(-5))
}

func TestApplyReceiptMovingAverage(t *testing.T) {
	rec := NewInventoryRecord(uuid.New(), uuid.New(), "Central")
	rec.CurrentStock = 10
	rec.AverageCost = decimal.NewFromInt(5)

	rec.ApplyReceipt(10, decimal.NewFromInt(7))

	assert.Equal(t, 20, rec.CurrentStock)
	assert.True(t, rec.AverageCost.Equal(decimal.NewFromInt(6)),
		"expected average 6, got %s", rec.AverageCost)
}

func TestApplyReceiptFirstStock(t *testing.T) {
	rec := NewInventoryRecord(uuid.New(), uuid.New(), "Central")

	rec.ApplyReceipt(25, decimal.RequireFromString("9.99"))

	assert.Equal(t, 25, rec.CurrentStock)
	assert.True(t, rec.AverageCost.Equal(decimal.RequireFromString("9.99")))
}

func TestApplyReceiptIgnoresNonPositive(t *testing.T) {
	rec := NewInventoryRecord(uuid.New(), uuid.New(), "Central")
	rec.CurrentStock = 10
	rec.AverageCost = decimal.NewFromInt(5)

	rec.ApplyReceipt(0, decimal.NewFromInt(100))
	rec.ApplyReceipt(-3, decimal.NewFromInt(100))

	assert.Equal(t, 10, rec.CurrentStock)
	assert.True(t, rec.AverageCost.Equal(decimal.NewFromInt(5)))
}
