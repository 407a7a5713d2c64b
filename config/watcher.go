package config

import (
	"fmt"
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a Parameters file into a Shared snapshot whenever it
// changes on disk, so a long-running search can be retuned without
// restarting it. It debounces write events the way editors and atomic
// file replacement both tend to generate bursts of them.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	shared  *Shared
	logger  *log.Logger
	done    chan struct{}
}

// NewWatcher starts watching path, reloading into shared on every write.
// logger may be nil, in which case reload errors are dropped silently:
// a stale-but-valid Parameters snapshot is preferable to crashing a run
// over a transient file read error.
func NewWatcher(path string, shared *Shared, logger *log.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: creating watcher: %w", err)
	}

	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config: watching %s: %w", path, err)
	}

	w := &Watcher{
		watcher: fsw,
		path:    path,
		shared:  shared,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) logf(format string, args ...any) {
	if w.logger != nil {
		w.logger.Printf(format, args...)
	}
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write != fsnotify.Write {
				continue
			}
			// Debounce: editors and atomic renames fire several write
			// events in quick succession for a single logical save.
			time.Sleep(100 * time.Millisecond)

			p, err := Load(w.path)
			if err != nil {
				w.logf("config: reload %s failed: %v", w.path, err)
				continue
			}
			if err := p.Validate(false); err != nil {
				w.logf("config: reload %s produced invalid parameters: %v", w.path, err)
				continue
			}
			w.shared.Update(p)
			w.logf("config: reloaded parameters from %s", w.path)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logf("config: watcher error: %v", err)

		case <-w.done:
			return
		}
	}
}

// Close stops the watcher goroutine and releases its underlying file
// descriptor.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
