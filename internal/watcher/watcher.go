// Package watcher watches a page's output directory and forwards change
// events to the active build-system plugin.
package watcher

import (
	"path/filepath"
	"sync"

	"github.com/syncthing/notify"
	"go.uber.org/zap"
)

// Watcher is a recursive file watcher over one directory.
type Watcher struct {
	events chan notify.EventInfo
	log    *zap.SugaredLogger

	closeOnce sync.Once
	done      chan struct{}
}

// Watch starts watching dir recursively, calling onChange with the path of
// every created or written file. Watch errors are logged and do not stop
// the watcher.
func Watch(logger *zap.SugaredLogger, dir string, onChange func(path string)) (*Watcher, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	// Buffered so a burst of events doesn't block the notify runtime.
	events := make(chan notify.EventInfo, 64)
	if err := notify.Watch(filepath.Join(abs, "..."), events, notify.Create, notify.Write); err != nil {
		return nil, err
	}

	w := &Watcher{
		events: events,
		log:    logger,
		done:   make(chan struct{}),
	}

	go func() {
		for {
			select {
			case ei, ok := <-events:
				if !ok {
					return
				}
				w.log.Debugw("file changed", "path", ei.Path(), "event", ei.Event().String())
				onChange(ei.Path())
			case <-w.done:
				return
			}
		}
	}()

	return w, nil
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		notify.Stop(w.events)
		close(w.done)
	})
}
