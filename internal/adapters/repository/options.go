package repository

import (
	"time"

	"github.com/okian/elotrack/pkg/logger"
)

// Option applies a configuration option to the RosterStore.
type Option func(*RosterStore)

// WithClock sets the source of "today" for history entries.
func WithClock(now func() time.Time) Option {
	return func(s *RosterStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger logs every persist with its duration. Without it the store is
// silent.
func WithLogger(l logger.Logger) Option {
	return func(s *RosterStore) {
		s.logger = l
	}
}
