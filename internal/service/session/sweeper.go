package session

import (
	"context"
	"time"

	"github.com/your-org/gateway/internal/service/metrics"
	"github.com/your-org/gateway/internal/store"
	"github.com/your-org/gateway/pkg/logger"
)

// Sweeper periodically deletes sessions that are past their absolute
// expiry or revoked. Sliding expiry is enforced on read, so idle
// sessions survive in the store until their absolute deadline.
type Sweeper struct {
	store    *store.Store
	interval time.Duration
}

// NewSweeper creates a sweeper. A non-positive interval falls back to
// hourly.
func NewSweeper(st *store.Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{store: st, interval: interval}
}

// Run sweeps until ctx is cancelled. Sweep failures are logged and the
// loop keeps going.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info("session sweeper started", logger.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			logger.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.store.DeleteExpiredSessions(ctx, time.Now())
	if err != nil {
		logger.Error("session sweep failed", logger.Err(err))
		return
	}
	if n > 0 {
		metrics.Default.SessionsSweptTotal.Add(float64(n))
		logger.Info("session sweep removed sessions", logger.Int64("removed", n))
	}
}
