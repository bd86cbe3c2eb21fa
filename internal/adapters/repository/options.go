package repository

import "time"

// Default transaction configuration.
const (
	defaultMaxAttempts = 5
)

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithMaxAttempts bounds the optimistic retry loop in RunTransaction.
func WithMaxAttempts(n int) Option {
	return func(s *MemStore) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithClock replaces the server-time source, for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(s *MemStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}
