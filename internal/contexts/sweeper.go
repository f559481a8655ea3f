package contexts

import (
	"context"
	"time"

	"github.com/brisalabs/salon-ai-platform/pkg/logging"
)

type inactiveCloser interface {
	CloseAllInactive(ctx context.Context, idleHours int) (int64, error)
}

// Sweeper periodically closes contexts with no interaction for idleHours.
type Sweeper struct {
	store     inactiveCloser
	idleHours int
	interval  time.Duration
	logger    *logging.Logger
}

// NewSweeper creates an idle-context sweeper.
func NewSweeper(store inactiveCloser, idleHours int, interval time.Duration, logger *logging.Logger) *Sweeper {
	if idleHours <= 0 {
		idleHours = 24
	}
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Sweeper{store: store, idleHours: idleHours, interval: interval, logger: logger}
}

// Run sweeps on a fixed period until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	closed, err := s.store.CloseAllInactive(ctx, s.idleHours)
	if err != nil {
		s.logger.Error("idle context sweep failed", "error", err)
		return
	}
	if closed > 0 {
		s.logger.Info("idle contexts closed", "count", closed, "idle_hours", s.idleHours)
	}
}
