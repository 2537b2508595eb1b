// Package connectivity tracks transport state and gates writes on it.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/okian/matchtrack/pkg/logger"
	"github.com/okian/matchtrack/pkg/metrics"
)

// Change is emitted to watchers on every transition.
type Change struct {
	Online bool
	At     time.Time
}

// Monitor holds the online/offline state of one tracker's transport.
type Monitor struct {
	name string

	mu       sync.RWMutex
	online   bool
	since    time.Time
	watchers map[int]chan Change
	nextID   int

	now    func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to the Monitor.
type Option func(*Monitor)

// WithInitial sets the starting state. Monitors start online.
func WithInitial(online bool) Option {
	return func(m *Monitor) { m.online = online }
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMonitor creates a monitor; name labels its logs and metrics.
func NewMonitor(name string, opts ...Option) *Monitor {
	m := &Monitor{
		name:     name,
		online:   true,
		watchers: make(map[int]chan Change),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.since = m.now()
	m.logger = logger.Get().Named("connectivity").With(logger.String("tracker", name))
	metrics.UpdateConnectivity(name, m.online)
	return m
}

// Online reports the current state.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Since returns when the current state began.
func (m *Monitor) Since() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.since
}

// Require returns ErrOffline when writes are disabled.
func (m *Monitor) Require() error {
	if !m.Online() {
		return ErrOffline
	}
	return nil
}

// SetOnline records the transport state and reports whether it changed.
// Watchers are notified only on a change; a watcher that is not keeping
// up has its undelivered change replaced by the latest one.
func (m *Monitor) SetOnline(ctx context.Context, online bool) bool {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return false
	}
	m.online = online
	m.since = m.now()
	change := Change{Online: online, At: m.since}
	for _, ch := range m.watchers {
		select {
		case ch <- change:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- change:
			default:
			}
		}
	}
	m.mu.Unlock()

	metrics.UpdateConnectivity(m.name, online)
	if online {
		m.logger.Info(ctx, "connection restored")
	} else {
		m.logger.Warn(ctx, "connection lost")
	}
	return true
}

// Watch registers a listener. The returned cancel func unregisters it and
// closes the channel; it is safe to call more than once.
func (m *Monitor) Watch() (<-chan Change, func()) {
	ch := make(chan Change, 1)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.watchers[id] = ch
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.watchers, id)
			m.mu.Unlock()
			close(ch)
		})
	}
}

// Watchers returns the number of registered listeners.
func (m *Monitor) Watchers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.watchers)
}
