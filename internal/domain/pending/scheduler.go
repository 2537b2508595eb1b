package pending

import (
	"context"
	"sync"
	"time"
)

// Default tick intervals.
const (
	DefaultRefreshInterval = time.Second
	DefaultSweepInterval   = 5 * time.Second
)

// Scheduler owns the aging and expiry ticks of one Queue. Stop cancels
// both; a stopped Scheduler can be started again.
type Scheduler struct {
	queue        *Queue
	refreshEvery time.Duration
	sweepEvery   time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler for q.
func NewScheduler(q *Queue, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		queue:        q,
		refreshEvery: DefaultRefreshInterval,
		sweepEvery:   DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the ticks. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
}

// Running reports whether the ticks are active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Stop cancels the ticks and waits for the loop to exit. Safe to call twice.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	refresh := time.NewTicker(s.refreshEvery)
	defer refresh.Stop()
	sweep := time.NewTicker(s.sweepEvery)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-refresh.C:
			s.queue.Refresh()
		case <-sweep.C:
			s.queue.Sweep(ctx)
		}
	}
}
