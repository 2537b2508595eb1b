package broadcast

import "github.com/okian/matchtrack/pkg/logger"

type settings struct {
	buffer int
	logger logger.Logger
}

// Option applies a configuration option to a Channel implementation.
type Option func(*settings)

// WithBuffer sets the per-subscriber delivery buffer.
func WithBuffer(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

func newSettings(name string, opts []Option) settings {
	s := settings{buffer: DefaultBuffer}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named(name)
	}
	return s
}
