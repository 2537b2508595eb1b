package repository

import "time"

// Default connection pool settings.
const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
	defaultPingTimeout     = 5 * time.Second
)

// Option applies a configuration option to the PostgresStore.
type Option func(*PostgresStore)

// WithMaxOpenConns caps open connections.
func WithMaxOpenConns(n int) Option {
	return func(s *PostgresStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}

// WithMaxIdleConns caps idle connections.
func WithMaxIdleConns(n int) Option {
	return func(s *PostgresStore) {
		if n > 0 {
			s.maxIdleConns = n
		}
	}
}

// WithConnMaxLifetime bounds how long a connection is reused.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(s *PostgresStore) {
		if d > 0 {
			s.connMaxLifetime = d
		}
	}
}

// WithMigrate creates the schema on open when it does not exist.
func WithMigrate(enabled bool) Option {
	return func(s *PostgresStore) {
		s.migrate = enabled
	}
}
