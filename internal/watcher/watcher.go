// Package watcher monitors the docs directory and signals when its PDF
// contents change, so the server can reindex automatically.
package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"docubot/internal/logger"
)

// DefaultDebounce is how long the directory must stay quiet before a
// change signal is emitted. Uploads arrive as bursts of write events;
// reindexing once per burst is enough.
const DefaultDebounce = 2 * time.Second

// Watcher emits a signal after each settled burst of PDF changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// New creates a watcher. A non-positive debounce uses DefaultDebounce.
func New(debounce time.Duration) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{watcher: w, debounce: debounce}, nil
}

// Watch starts monitoring dir and returns a channel that receives one
// value per settled burst of PDF create/write/remove events. The
// channel closes when ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan struct{}, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	changes := make(chan struct{}, 1)

	go func() {
		defer close(changes)
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !isPDF(event.Name) {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				logger.Debug("watcher: %s %s", event.Op, event.Name)
				if timer == nil {
					timer = time.NewTimer(w.debounce)
					fire = timer.C
				} else {
					// The timer may have expired with its value still
					// queued; Reset on top of that would deliver a stale
					// signal and trigger a second reindex.
					if !timer.Stop() {
						select {
						case <-timer.C:
						default:
						}
					}
					timer.Reset(w.debounce)
				}
			case <-fire:
				timer = nil
				fire = nil
				select {
				case changes <- struct{}{}:
				default:
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watcher: %v", err)
			}
		}
	}()

	return changes, nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
