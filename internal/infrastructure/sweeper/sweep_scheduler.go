// Package sweeper runs the expiration sweep on a timer, outbox-scheduler
// style. The sweep itself lives in the application layer and can also be
// triggered on demand through the HTTP API.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pressroom-labs/catalog-allocation-go/internal/application"
)

type Scheduler struct {
	sweeper  *application.SweeperService
	log      *zap.Logger
	interval time.Duration
}

func NewScheduler(sweeper *application.SweeperService, log *zap.Logger, intervalSec int) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		log:      log,
		interval: time.Duration(intervalSec) * time.Second,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.log.Info("sweep scheduler stopped")
				return
			case <-ticker.C:
				res, err := s.sweeper.CleanupExpiredReservations(ctx)
				if err != nil {
					s.log.Error("expiration sweep failed", zap.Error(err))
					continue
				}
				if res.Cleaned > 0 {
					s.log.Info("expiration sweep finished",
						zap.Int("cleaned", res.Cleaned),
						zap.Int("releasedQuantity", res.ReleasedQuantity))
				}
			}
		}
	}()
}
