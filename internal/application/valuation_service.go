package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pressroom-labs/catalog-allocation-go/internal/domain"
)

// ValuationService replays the movement ledger to cost on-hand stock.
// Batch/report oriented: a plain repository read, no locking against the
// allocation path.
type ValuationService struct {
	movements domain.StockMovementRepository
	now       func() time.Time
}

func NewValuationService(movements domain.StockMovementRepository) *ValuationService {
	return &ValuationService{
		movements: movements,
		now:       time.Now,
	}
}

// ValueInventory costs the stock held for a (title, warehouse) pair under
// the given method. FIFO consumes the oldest receipt layers first, LIFO the
// newest, WEIGHTED_AVERAGE keeps one rolling layer.
func (s *ValuationService) ValueInventory(
	ctx context.Context,
	titleID, warehouseID uuid.UUID,
	method domain.ValuationMethod,
) (*domain.InventoryValuation, error) {
	movements, err := s.movements.ListByTitleAndWarehouse(ctx, titleID, warehouseID)
	if err != nil {
		return nil, err
	}

	var layers []domain.CostLayer
	switch method {
	case domain.ValuationFifo, domain.ValuationLifo:
		layers, err = replayLayered(movements, method)
	case domain.ValuationWeightedAverage:
		layers, err = replayWeightedAverage(movements)
	default:
		return nil, fmt.Errorf("unknown valuation method %q", method)
	}
	if err != nil {
		return nil, err
	}

	val := &domain.InventoryValuation{
		TitleID:     titleID,
		WarehouseID: warehouseID,
		Method:      method,
		TotalCost:   decimal.Zero,
		UnitCost:    decimal.Zero,
		Layers:      layers,
		ValuedAtUtc: s.now().UTC(),
	}
	for _, l := range layers {
		val.OnHandQuantity += l.Quantity
		val.TotalCost = val.TotalCost.Add(l.UnitCost.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	if val.OnHandQuantity > 0 {
		val.UnitCost = val.TotalCost.DivRound(decimal.NewFromInt(int64(val.OnHandQuantity)), 4)
	}
	return val, nil
}

func replayLayered(
	movements []*domain.StockMovement,
	method domain.ValuationMethod,
) ([]domain.CostLayer, error) {
	layers := []domain.CostLayer{}
	for _, mv := range movements {
		switch mv.Type {
		case domain.MovementReceipt:
			layers = append(layers, domain.CostLayer{
				Quantity: mv.Quantity,
				UnitCost: mv.UnitCost,
			})
		case domain.MovementIssue:
			remaining := mv.Quantity
			for remaining > 0 {
				if len(layers) == 0 {
					return nil, fmt.Errorf(
						"movement ledger inconsistent: issue of %d exceeds receipts (movement %s)",
						mv.Quantity, mv.ID)
				}
				idx := 0
				if method == domain.ValuationLifo {
					idx = len(layers) - 1
				}
				take := layers[idx].Quantity
				if take > remaining {
					take = remaining
				}
				layers[idx].Quantity -= take
				remaining -= take
				if layers[idx].Quantity == 0 {
					layers = append(layers[:idx], layers[idx+1:]...)
				}
			}
		}
	}
	return layers, nil
}

func replayWeightedAverage(movements []*domain.StockMovement) ([]domain.CostLayer, error) {
	qty := 0
	totalCost := decimal.Zero
	for _, mv := range movements {
		switch mv.Type {
		case domain.MovementReceipt:
			qty += mv.Quantity
			totalCost = totalCost.Add(mv.UnitCost.Mul(decimal.NewFromInt(int64(mv.Quantity))))
		case domain.MovementIssue:
			if mv.Quantity > qty {
				return nil, fmt.Errorf(
					"movement ledger inconsistent: issue of %d exceeds on-hand %d (movement %s)",
					mv.Quantity, qty, mv.ID)
			}
			avg := totalCost.DivRound(decimal.NewFromInt(int64(qty)), 4)
			totalCost = totalCost.Sub(avg.Mul(decimal.NewFromInt(int64(mv.Quantity))))
			qty -= mv.Quantity
		}
	}
	if qty == 0 {
		return []domain.CostLayer{}, nil
	}
	avg := totalCost.DivRound(decimal.NewFromInt(int64(qty)), 4)
	return []domain.CostLayer{{Quantity: qty, UnitCost: avg}}, nil
}
