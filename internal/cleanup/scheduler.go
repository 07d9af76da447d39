// Package cleanup runs the periodic retention purge against the audit log
// tables (spec §4.8).
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/mrorigo/blanktrace/internal/config"
	"github.com/mrorigo/blanktrace/internal/store"
)

// Scheduler fires a retention purge every interval_seconds, disabled
// entirely when cleanup.enabled is false. It runs in its own transaction
// per tick and must not starve the log-writer sharing the same database
// (spec §4.8): each tick is a single short DELETE transaction, not a long-
// held lock.
type Scheduler struct {
	db     *store.Store
	policy config.CleanupPolicy
	logger *slog.Logger
}

// NewScheduler builds a cleanup scheduler. A nil logger falls back to slog.Default().
func NewScheduler(db *store.Store, policy config.CleanupPolicy, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{db: db, policy: policy, logger: logger}
}

// Run blocks, ticking every interval_seconds until ctx is canceled. It is a
// no-op for the lifetime of ctx when cleanup.enabled is false, so callers
// can always start it unconditionally.
func (s *Scheduler) Run(ctx context.Context) {
	if !s.policy.Enabled {
		<-ctx.Done()
		return
	}

	interval := time.Duration(s.policy.IntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one purge pass. A failure is logged and retried on the next
// tick rather than treated as fatal (spec §4.8, §7).
func (s *Scheduler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-time.Duration(s.policy.RetentionDays) * 24 * time.Hour)
	if err := s.db.PurgeOlderThan(ctx, cutoff); err != nil {
		s.logger.Error("cleanup: retention purge failed", "error", err)
		return
	}
	s.logger.Debug("cleanup: retention purge complete", "retention_days", s.policy.RetentionDays)
}
