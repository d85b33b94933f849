package background

import (
	"context"
	"log/slog"
	"time"
)

// AttemptPruner drops attempt histories that have aged out of the throttle
// window.
type AttemptPruner interface {
	PruneStale() int
}

// Janitor periodically compacts the guard's in-memory attempt history.
// Throttling decisions prune lazily on their own; this only bounds memory on
// long-running processes that see many distinct addresses.
type Janitor struct {
	pruner   AttemptPruner
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewJanitor creates a new Janitor
func NewJanitor(pruner AttemptPruner, logger *slog.Logger, interval time.Duration) *Janitor {
	return &Janitor{
		pruner:   pruner,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic prune task
func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := j.pruner.PruneStale(); removed > 0 {
				j.logger.Info("pruned stale attempt histories", slog.Int("addresses", removed))
			}
		case <-j.stopCh:
			j.logger.Info("janitor stopped")
			return
		case <-ctx.Done():
			j.logger.Info("janitor context cancelled")
			return
		}
	}
}

// Stop signals the janitor to stop
func (j *Janitor) Stop() {
	close(j.stopCh)
}
