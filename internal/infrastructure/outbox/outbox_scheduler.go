package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Scheduler struct {
	dispatcher *Dispatcher
	log        *zap.Logger
	interval   time.Duration
}

func NewScheduler(d *Dispatcher, log *zap.Logger, intervalSec int) *Scheduler {
	return &Scheduler{
		dispatcher: d,
		log:        log,
		interval:   time.Duration(intervalSec) * time.Second,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.log.Info("outbox scheduler stopped")
				return
			case <-ticker.C:
				n, err := s.dispatcher.DispatchOnce(ctx)
				if err != nil {
					s.log.Error("outbox dispatch failed", zap.Error(err))
				} else if n > 0 {
					s.log.Info("outbox dispatched", zap.Int("messages", n))
				}
			}
		}
	}()
}
