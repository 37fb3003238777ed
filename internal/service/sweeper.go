package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/punchamoorthee/bazaarops/internal/store"
)

// RunExpirySweeper expires overdue pending trades on a fixed interval
// until ctx is cancelled. It is the engine's only timeout mechanism: an
// accept racing the sweep loses or wins the status CAS, never both.
func (s *Service) RunExpirySweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	zap.L().Info("trade expiry sweeper started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("trade expiry sweeper stopped")
			return
		case <-ticker.C:
			expired, err := store.ExpireTrades(ctx, s.store.Pool(), s.now())
			if err != nil {
				zap.L().Error("trade expiry sweep failed", zap.Error(err))
				continue
			}
			if expired > 0 {
				zap.L().Info("expired pending trades", zap.Int64("count", expired))
			}
		}
	}
}
