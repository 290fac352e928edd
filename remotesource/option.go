package remotesource

import "log/slog"

// defaultConcurrency bounds parallel Fetch calls during one listing.
const defaultConcurrency = 4

// Option configures a Source (functional options pattern).
type Option func(*Source)

// WithConcurrency sets how many manifests are fetched in parallel. Values below 1 mean 1.
func WithConcurrency(n int) Option {
	return func(s *Source) {
		s.concurrency = max(n, 1)
	}
}

// WithLogger sets the logger. Nil leaves slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}
