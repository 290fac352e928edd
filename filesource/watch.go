package filesource

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/skosovsky/promptcatalog/manifest"
)

// DefaultDebounce is how long Watch waits after the last relevant event before calling onChange.
const DefaultDebounce = 200 * time.Millisecond

// WatchOption configures Watch.
type WatchOption func(*watchConfig)

type watchConfig struct {
	debounce time.Duration
	logger   *slog.Logger
}

// WithDebounce sets the quiet period between the last file event and onChange.
func WithDebounce(d time.Duration) WatchOption {
	return func(c *watchConfig) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithWatchLogger sets the logger for watcher errors. Nil leaves slog.Default().
func WithWatchLogger(l *slog.Logger) WatchOption {
	return func(c *watchConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Watch blocks until ctx is done, calling onChange after manifest files in the directory
// are created, written, removed or renamed. Bursts of events collapse into one call.
// onChange runs on the watching goroutine; a slow callback delays later events.
func (s *Source) Watch(ctx context.Context, onChange func(context.Context), opts ...WatchOption) error {
	cfg := watchConfig{debounce: DefaultDebounce, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("filesource: new watcher: %w", err)
	}
	defer func() { _ = w.Close() }()
	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("filesource: watch %s: %w", s.dir, err)
	}

	// Timers created with NewTimer never deliver a stale value after Stop or Reset.
	timer := time.NewTimer(cfg.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			cfg.logger.Debug("prompt file changed", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(cfg.debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			cfg.logger.Warn("prompt watcher error", "dir", s.dir, "err", err)
		case <-timer.C:
			onChange(ctx)
		}
	}
}

func relevant(ev fsnotify.Event) bool {
	if !manifest.IsManifestFile(ev.Name) {
		return false
	}
	return ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) ||
		ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename)
}
