package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically purges dead records from a Purger.
type Sweeper struct {
	Log      *zap.Logger
	Purger   Purger
	Interval time.Duration
	Now      func() time.Time
}

// NewSweeper returns a sweeper running every interval (one hour when
// interval is not positive).
func NewSweeper(log *zap.Logger, p Purger, interval time.Duration) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{Log: log, Purger: p, Interval: interval, Now: time.Now}
}

func (s *Sweeper) tick(ctx context.Context) {
	n, err := s.Purger.Purge(ctx, s.Now())
	if err != nil {
		s.Log.Warn("ledger purge failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.Log.Debug("ledger purged", zap.Int64("records", n))
	}
}

// Run purges once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}
