package library

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// RescanDebouncer collapses bursts of filesystem events into a single
// rescan. Copying a file into the music folder produces many writes; the
// rescan fires only once the window elapses without further events.
type RescanDebouncer struct {
	window   time.Duration
	callback func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewRescanDebouncer creates a debouncer that invokes callback after the
// window elapses without fresh triggers.
func NewRescanDebouncer(window time.Duration, callback func()) *RescanDebouncer {
	return &RescanDebouncer{window: window, callback: callback}
}

// Trigger records a filesystem change and (re)arms the timer.
func (d *RescanDebouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.callback)
}

// Stop prevents any further callbacks.
func (d *RescanDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Watch observes the music folder and invokes onChange (debounced) when
// audio files appear, disappear or are renamed. This also catches files
// dropped in out-of-band, next to the ingestion path. Blocks until ctx
// ends.
func (l *Library) Watch(ctx context.Context, window time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(l.folder); err != nil {
		return err
	}

	debouncer := NewRescanDebouncer(window, onChange)
	defer debouncer.Stop()

	log.Info().Str("folder", l.folder).Msg("Watching music folder")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !audioExtensions[strings.ToLower(filepath.Ext(ev.Name))] {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
				log.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("Music folder changed")
				debouncer.Trigger()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Music folder watcher error")
		}
	}
}
