package service

import (
	"time"

	"github.com/okian/matchtrack/internal/adapters/mq/broadcast"
	"github.com/okian/matchtrack/internal/adapters/repository"
	"github.com/okian/matchtrack/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the match data store. Defaults to an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithChannel sets the broadcast channel. Defaults to an in-process hub
// owned and closed by the service.
func WithChannel(ch broadcast.Channel) Option {
	return func(s *Service) {
		if ch != nil {
			s.channel = ch
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDribbleThreshold sets the minimum same-player hold for a dribble.
func WithDribbleThreshold(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.dribbleThreshold = d
		}
	}
}

// WithDebounce sets the pending queue debounce window. Zero disables it.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.debounce = d
		}
	}
}

// WithExpiry sets the age at which pending events are dropped.
func WithExpiry(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithRefreshInterval sets the pending aging tick.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshInterval = d
		}
	}
}

// WithSweepInterval sets the pending expiry tick.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithResolvedMemory bounds how many resolved ids each queue remembers.
func WithResolvedMemory(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.resolvedMemory = n
		}
	}
}

// WithProbeInterval sets how often the broadcast transport is pinged.
func WithProbeInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.probeInterval = d
		}
	}
}

// WithNoticeLimit caps the notices kept per tracker.
func WithNoticeLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.noticeLimit = n
		}
	}
}

// WithClock replaces the wall clock used for timestamps and aging.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
