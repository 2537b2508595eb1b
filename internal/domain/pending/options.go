package pending

import (
	"context"
	"time"

	"github.com/okian/matchtrack/internal/domain/dedupe"
	"github.com/okian/matchtrack/pkg/logger"
)

// Option applies a configuration option to the Queue.
type Option func(*Queue)

// WithClock replaces the wall clock used for aging and debounce.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// WithDebounce sets the minimum wall-clock gap between two inserts.
// Zero disables debouncing.
func WithDebounce(d time.Duration) Option {
	return func(q *Queue) {
		if d >= 0 {
			q.debounce = d
		}
	}
}

// WithExpiry sets the age at which Sweep drops an item.
func WithExpiry(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.expiry = d
		}
	}
}

// WithResolvedMemory bounds how many offered ids the queue remembers.
func WithResolvedMemory(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.resolved = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(n))
		}
	}
}

// WithExpireHook registers a callback invoked after a sweep drops items.
func WithExpireHook(fn func(ctx context.Context, dropped []PendingEvent)) Option {
	return func(q *Queue) {
		q.onExpire = fn
	}
}

// WithLogger sets a custom logger for the queue.
func WithLogger(l logger.Logger) Option {
	return func(q *Queue) {
		if l != nil {
			q.logger = l
		}
	}
}

// SchedulerOption applies a configuration option to the Scheduler.
type SchedulerOption func(*Scheduler)

// WithRefreshInterval sets the fast aging tick.
func WithRefreshInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.refreshEvery = d
		}
	}
}

// WithSweepInterval sets the slow eviction tick.
func WithSweepInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.sweepEvery = d
		}
	}
}
