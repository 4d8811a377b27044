package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pressroom-labs/catalog-allocation-go/internal/domain"
)

// AtpService answers "how much can we promise" questions. Pure reads, no
// side effects.
type AtpService struct {
	records domain.InventoryRecordRepository
	now     func() time.Time
}

func NewAtpService(records domain.InventoryRecordRepository) *AtpService {
	return &AtpService{
		records: records,
		now:     time.Now,
	}
}

func (s *AtpService) CalculateAtp(
	ctx context.Context,
	titleID, warehouseID uuid.UUID,
) (*domain.WarehouseAtp, error) {
	rec, err := s.records.Get(ctx, titleID, warehouseID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.NewInventoryRecordNotFound(titleID, warehouseID)
	}
	atp := domain.AtpFromRecord(rec)
	return &atp, nil
}

// CalculateMultiWarehouseAtp aggregates availability across every
// warehouse holding the title. A title with no inventory anywhere yields an
// empty list and total zero, not an error.
func (s *AtpService) CalculateMultiWarehouseAtp(
	ctx context.Context,
	titleID uuid.UUID,
) (*domain.MultiWarehouseAtp, error) {
	recs, err := s.records.ListByTitle(ctx, titleID)
	if err != nil {
		return nil, err
	}

	result := &domain.MultiWarehouseAtp{
		TitleID:         titleID,
		WarehouseAtps:   make([]domain.WarehouseAtp, 0, len(recs)),
		AggregatedAtUtc: s.now().UTC(),
	}
	for _, rec := range recs {
		atp := domain.AtpFromRecord(rec)
		result.WarehouseAtps = append(result.WarehouseAtps, atp)
		result.TotalAtp += atp.AtpQuantity
	}
	return result, nil
}
