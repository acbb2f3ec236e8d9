package accounts

import (
	"context"
	"time"
)

// DefaultSweepInterval is how often the sweeper purges dead rows.
const DefaultSweepInterval = time.Hour

// Sweeper periodically deletes used/expired one-time codes and audit
// records past retention. Purging is advisory: every read path re-checks
// liveness, so a missed sweep never affects correctness.
type Sweeper struct {
	codes    []*CodeLifecycle
	audit    AuditRecords
	interval time.Duration
	logger   Logger
	now      Clock
}

// SweeperOption customizes the sweeper.
type SweeperOption func(*Sweeper)

// WithSweepInterval overrides the sweep cadence.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSweeperLogger overrides the logger.
func WithSweeperLogger(logger Logger) SweeperOption {
	return func(s *Sweeper) {
		s.logger = normalizeLogger(logger)
	}
}

// WithSweeperClock injects a custom clock.
func WithSweeperClock(clock Clock) SweeperOption {
	return func(s *Sweeper) {
		s.now = normalizeClock(clock)
	}
}

// NewSweeper creates the cleanup sweeper over the given code lifecycles
// and audit store. A nil audit store skips audit purging.
func NewSweeper(audit AuditRecords, codes []*CodeLifecycle, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		codes:    codes,
		audit:    audit,
		interval: DefaultSweepInterval,
		logger:   defLogger{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Run blocks, sweeping every interval until the context is cancelled.
// Callers start it in its own goroutine.
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

// Sweep runs one purge pass. Failures are logged and skipped; the next
// pass retries naturally.
func (s *Sweeper) Sweep(ctx context.Context) {
	for _, lifecycle := range s.codes {
		if lifecycle == nil {
			continue
		}
		purged, err := lifecycle.Purge(ctx)
		if err != nil {
			s.logger.Error("code purge failed: %v", err)
			continue
		}
		if purged > 0 {
			s.logger.Debug("purged %d dead codes", purged)
		}
	}

	if s.audit == nil {
		return
	}

	purged, err := s.audit.PurgeExpired(ctx, s.now())
	if err != nil {
		s.logger.Error("audit purge failed: %v", err)
		return
	}
	if purged > 0 {
		s.logger.Debug("purged %d expired audit records", purged)
	}
}
