package catalogfile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jsamuelsen/library-catalog/internal/platform/logging"
	"github.com/jsamuelsen/library-catalog/internal/ports"
)

// DefaultDebounce collapses the burst of events editors emit on save.
const DefaultDebounce = 250 * time.Millisecond

// ReloadFunc receives a freshly parsed catalogue.
type ReloadFunc func(ctx context.Context, seeds []ports.LibrarySeed) error

// Watch reloads the catalogue at path whenever it changes and hands the
// result to onChange. Parse failures are logged and the previous content
// stays in effect. Watch blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file so that editors
// which save by rename are still seen.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange ReloadFunc) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	logger := logging.FromContext(ctx).With(slog.String("catalog_file", abs))
	logger.InfoContext(ctx, "watching catalogue file")

	timer := time.NewTimer(debounce)
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

			if filepath.Clean(ev.Name) != abs || ev.Op == fsnotify.Chmod {
				continue
			}

			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}

			logger.WarnContext(ctx, "catalogue watcher error", slog.String("error", err.Error()))

		case <-timer.C:
			seeds, err := Load(abs)
			if err != nil {
				logger.ErrorContext(ctx, "catalogue reload rejected", slog.String("error", err.Error()))

				continue
			}

			if err := onChange(ctx, seeds); err != nil {
				logger.ErrorContext(ctx, "catalogue reload failed", slog.String("error", err.Error()))

				continue
			}

			logger.InfoContext(ctx, "catalogue reloaded", slog.Int("libraries", len(seeds)))
		}
	}
}
