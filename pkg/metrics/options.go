package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Defaults for the service-wide manager. Series are exported as
// matchtrack_tracker_<name>.
const (
	defaultNamespace       = "matchtrack"
	defaultSubsystem       = "tracker"
	defaultRefreshInterval = 10 * time.Second
)

// defaultLatencyBuckets covers commit and HTTP latencies in milliseconds,
// from an in-memory write to a slow Postgres round trip.
var defaultLatencyBuckets = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500} //nolint:gochecknoglobals // read-only

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace replaces the matchtrack namespace, e.g. to run two
// managers side by side in tests.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem replaces the tracker subsystem.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithLatencyBuckets sets the millisecond buckets of the commit and HTTP
// latency histograms.
func WithLatencyBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.latencyBuckets = buckets
		}
	}
}

// WithRefreshInterval sets how often the process gauges (memory,
// goroutines, GC pauses) should be sampled.
func WithRefreshInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.refreshInterval = interval
		}
	}
}

// WithPrometheusRegistry registers the series on registry instead of a
// private one.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}
