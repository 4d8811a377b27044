package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pressroom-labs/catalog-allocation-go/internal/domain"
)

// SweeperService reclaims stock from abandoned reservations. It is the
// cancellation mechanism for holds nobody came back for, not a request
// timeout.
type SweeperService struct {
	reservations domain.ReservationRepository
	lifecycle    *ReservationService
	log          *zap.Logger
	now          func() time.Time
}

func NewSweeperService(
	reservations domain.ReservationRepository,
	lifecycle *ReservationService,
	log *zap.Logger,
) *SweeperService {
	return &SweeperService{
		reservations: reservations,
		lifecycle:    lifecycle,
		log:          log,
		now:          time.Now,
	}
}

func (s *SweeperService) WithClock(now func() time.Time) *SweeperService {
	s.now = now
	return s
}

// CleanupExpiredReservations releases every ACTIVE reservation past its
// expiration, tagging it EXPIRED. Running with nothing expired is a no-op.
func (s *SweeperService) CleanupExpiredReservations(
	ctx context.Context,
) (*domain.CleanupResult, error) {
	expired, err := s.reservations.ListActiveExpiredBefore(ctx, s.now())
	if err != nil {
		return nil, err
	}

	result := &domain.CleanupResult{Details: []string{}}
	for _, res := range expired {
		rel, err := s.lifecycle.ReleaseExpired(ctx, res)
		if err != nil {
			return result, err
		}
		if !rel.Success {
			// Lost a race with an explicit release or fulfillment.
			continue
		}
		result.Cleaned++
		result.ReleasedQuantity += rel.ReleasedQuantity
		result.Details = append(result.Details, fmt.Sprintf(
			"reservation %s: released %d units of title %s at warehouse %s",
			res.ID, res.Quantity, res.TitleID, res.WarehouseID))
	}

	if result.Cleaned > 0 {
		s.log.Info("expired reservations swept",
			zap.Int("cleaned", result.Cleaned),
			zap.Int("releasedQuantity", result.ReleasedQuantity))
	}
	return result, nil
}

// PerformMaintenanceCleanup purges terminal ledger entries older than the
// threshold to bound growth. Bookkeeping only; stock is never mutated.
func (s *SweeperService) PerformMaintenanceCleanup(
	ctx context.Context,
	maxAgeDays int,
) (int, error) {
	if maxAgeDays <= 0 {
		return 0, fmt.Errorf("maxAgeDays must be positive, got %d", maxAgeDays)
	}
	cutoff := s.now().AddDate(0, 0, -maxAgeDays)
	purged, err := s.reservations.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		s.log.Info("terminal reservations purged",
			zap.Int("purged", purged),
			zap.Time("cutoff", cutoff))
	}
	return purged, nil
}
