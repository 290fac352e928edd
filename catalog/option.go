package catalog

import "log/slog"

// Option configures a Catalog (functional options pattern).
type Option func(*Catalog)

// WithLogger sets the logger for per-entry and reload messages. Nil leaves slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDecoder replaces the YAML manifest decoder. Nil leaves the default.
func WithDecoder(d Decoder) Option {
	return func(c *Catalog) {
		if d != nil {
			c.decode = d
		}
	}
}
