package application

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/pressroom-labs/catalog-allocation-go/internal/domain"
)

const topCustomerLimit = 5

// StatisticsService aggregates ledger state for dashboards. Read only;
// never used for allocation decisions.
type StatisticsService struct {
	reservations domain.ReservationRepository
}

func NewStatisticsService(reservations domain.ReservationRepository) *StatisticsService {
	return &StatisticsService{reservations: reservations}
}

// GetAllocationStatistics summarizes all reservations ever recorded for a
// title. Empty input is a valid summary, not an error.
func (s *StatisticsService) GetAllocationStatistics(
	ctx context.Context,
	titleID uuid.UUID,
) (*domain.AllocationStatistics, error) {
	all, err := s.reservations.ListByTitle(ctx, titleID)
	if err != nil {
		return nil, err
	}

	stats := &domain.AllocationStatistics{
		TitleID:      titleID,
		TopCustomers: []domain.CustomerReservationSummary{},
	}

	byCustomer := map[uuid.UUID]*domain.CustomerReservationSummary{}
	for _, res := range all {
		stats.TotalReservations++
		if res.IsActive() {
			stats.ActiveReservations++
			stats.TotalReservedQuantity += res.Quantity
		}
		cs, ok := byCustomer[res.CustomerID]
		if !ok {
			cs = &domain.CustomerReservationSummary{CustomerID: res.CustomerID}
			byCustomer[res.CustomerID] = cs
		}
		cs.ReservationCount++
		cs.TotalQuantity += res.Quantity
	}

	for _, cs := range byCustomer {
		stats.TopCustomers = append(stats.TopCustomers, *cs)
	}
	sort.Slice(stats.TopCustomers, func(i, j int) bool {
		a, b := stats.TopCustomers[i], stats.TopCustomers[j]
		if a.TotalQuantity != b.TotalQuantity {
			return a.TotalQuantity > b.TotalQuantity
		}
		return a.CustomerID.String() < b.CustomerID.String()
	})
	if len(stats.TopCustomers) > topCustomerLimit {
		stats.TopCustomers = stats.TopCustomers[:topCustomerLimit]
	}
	return stats, nil
}
