package knowledge

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize knowledge file watcher")

// Watch reloads the store when the knowledge file is changed by another
// process. The parent directory is watched so editors that replace the file
// by rename are seen. Writes made by this store are recognized by content
// hash and ignored. Watching stops when ctx is done.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating knowledge directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	go s.processEvents(ctx, w)
	return nil
}

func (s *Store) processEvents(ctx context.Context, w *fsnotify.Watcher) {
	defer func() { _ = w.Close() }()
	target := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				s.handleFileChange()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("knowledge watcher error", zap.Error(err))
		}
	}
}

func (s *Store) handleFileChange() {
	if s.Degraded() {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		// Truncated mid-save; wait for the write that follows.
		return
	}
	sum := sha256.Sum256(data)

	s.mu.RLock()
	same := sum == s.lastSum
	s.mu.RUnlock()
	if same {
		return
	}

	if err := s.Reload(); err != nil {
		// A half-written file from an editor; the next event will retry.
		s.logger.Warn("knowledge reload failed; keeping previous contents", zap.Error(err))
		return
	}
	reloadsTotal.Inc()
	s.logger.Info("knowledge file changed on disk; reloaded", zap.String("path", s.path))
}
