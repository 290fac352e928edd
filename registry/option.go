package registry

import "log/slog"

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. Nil leaves slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}
