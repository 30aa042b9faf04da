package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const defaultSweepInterval = 12 * time.Hour

// SweeperOption mutates sweeper configuration.
type SweeperOption func(*Sweeper)

// WithSweeperLogger injects a structured logger.
func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(sweeper *Sweeper) {
		if logger != nil {
			sweeper.logger = logger
		}
	}
}

// WithTTL sets the inactivity duration after which a record is evicted.
func WithTTL(ttl time.Duration) SweeperOption {
	return func(sweeper *Sweeper) {
		if ttl > 0 {
			sweeper.ttl = ttl
		}
	}
}

// WithSweepInterval sets how often the periodic sweep runs.
func WithSweepInterval(interval time.Duration) SweeperOption {
	return func(sweeper *Sweeper) {
		if interval > 0 {
			sweeper.interval = interval
		}
	}
}

// Sweeper enforces the time-to-live retention bound: records whose last
// exchange is older than the TTL are evicted from the store, and a sweep
// that evicts anything persists the snapshot immediately so the eviction is
// durable before the next crash.
type Sweeper struct {
	store    *Store
	file     *SnapshotFile
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a retention sweeper over one store and its snapshot
// file.
func NewSweeper(store *Store, file *SnapshotFile, options ...SweeperOption) (*Sweeper, error) {
	if store == nil {
		return nil, fmt.Errorf("new sweeper: nil store")
	}
	if file == nil {
		return nil, fmt.Errorf("new sweeper: nil snapshot file")
	}

	sweeper := &Sweeper{
		store:    store,
		file:     file,
		ttl:      DefaultTTL,
		interval: defaultSweepInterval,
		logger:   slog.Default(),
	}
	for _, option := range options {
		option(sweeper)
	}

	return sweeper, nil
}

// Sweep runs one eviction pass and returns how many records were evicted.
func (s *Sweeper) Sweep(ctx context.Context) int {
	evicted := s.store.PruneExpired(s.ttl)
	if len(evicted) == 0 {
		return 0
	}

	s.logger.InfoContext(ctx, "evicted stale memory records",
		"count", len(evicted),
		"ttl", s.ttl,
	)
	if err := s.file.Save(s.store.Snapshot()); err != nil {
		s.logger.WarnContext(ctx, "failed to persist after retention sweep", "error", err)
	}

	return len(evicted)
}

// Run sweeps at the configured interval until ctx is done. The startup sweep
// is the caller's responsibility (run Sweep once before Run).
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}
