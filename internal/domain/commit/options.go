package commit

import (
	"time"

	"github.com/okian/matchtrack/pkg/logger"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithNotifier sets where confirmations and failures are surfaced.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) {
		if n != nil {
			p.notifier = n
		}
	}
}

// WithLabelPolicy sets the check applied to every label. The default
// accepts the built-in vocabulary.
func WithLabelPolicy(permits func(label string) bool) Option {
	return func(p *Pipeline) {
		if permits != nil {
			p.permits = permits
		}
	}
}

// WithClock replaces the wall clock used to stamp notices.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets a custom logger for the pipeline.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}
