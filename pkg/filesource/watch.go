package filesource

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/dmitrymomot/featurekit/pkg/logger"
)

// Watch calls onChange whenever the definitions file is written, created or
// renamed into place. It watches the parent directory so editors that replace the
// file atomically are picked up. Watch blocks until ctx is done.
func (s *Source) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWatchFailed, err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("%w: %w", ErrWatchFailed, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			s.log(ctx, slog.LevelDebug, "definitions file changed", logger.Event(event.Op.String()))
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log(ctx, slog.LevelWarn, "definitions watcher error", logger.Error(err))
		}
	}
}
