package authclient

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch observes the state file for outside modification and fires the
// store's OnChange listeners when it happens, so a holder notices when
// another process on the same profile logs out or rewrites the session.
// Blocks until ctx is done.
func (s *BoltStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating state watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors and movers replace files
	// and a direct file watch dies with the old inode.
	path := s.db.Path()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching state dir: %w", err)
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Chmod|fsnotify.Remove) != 0 {
				s.notify()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("state watcher: %w", err)
		}
	}
}
