// Package watch reruns a check whenever sources or configuration under the scanned tree change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jenian/titanlint/internal/config"
	xlog "github.com/jenian/titanlint/internal/log"
	"github.com/jenian/titanlint/internal/scanner"
	"github.com/jenian/titanlint/internal/titanconfig"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period after the last change before a rerun
const DefaultDebounce = 300 * time.Millisecond

// RunFunc performs one check and returns the directories to watch afterwards
type RunFunc func(ctx context.Context) ([]string, error)

// Options configures a watch loop
type Options struct {
	Debounce time.Duration
	Run      RunFunc
	Reload   func() // Called before the next run when a configuration file changed; may be nil
}

// Watcher owns the fsnotify watcher and the set of watched directories
type Watcher struct {
	opts    Options
	fs      *fsnotify.Watcher
	watched map[string]bool
	logger  zerolog.Logger
}

// New creates a watcher. Nothing is watched until Run.
func New(opts Options) (*Watcher, error) {
	if opts.Run == nil {
		return nil, errors.New("watch: Run is required")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &Watcher{
		opts:    opts,
		fs:      fs,
		watched: make(map[string]bool),
		logger:  xlog.WithComponent("watch"),
	}, nil
}

// Run performs an initial check, then reruns it after every debounced batch of changes until ctx is done.
// An error from the initial check is returned; later failures are logged and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		_ = w.fs.Close() // Ignore close error on shutdown
	}()

	dirs, err := w.opts.Run(ctx)
	if err != nil {
		return err
	}
	w.sync(dirs)

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		reload  bool
		changes int
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.logger.Debug().Msg("watcher stopped")
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("change detected")

			if isConfigFile(event.Name) {
				reload = true
			}
			changes++

			// Debounce: reset timer on each event
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if reload && w.opts.Reload != nil {
				w.logger.Info().Msg("configuration changed, reloading")
				w.opts.Reload()
			}
			reload = false
			w.logger.Debug().Int("changes", changes).Msg("rerunning check")
			changes = 0

			dirs, err := w.opts.Run(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Error().Err(err).Msg("check failed")
				continue
			}
			w.sync(dirs)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("watcher error")
		}
	}
}

// Watched returns the number of directories currently watched
func (w *Watcher) Watched() int {
	return len(w.watched)
}

// sync makes the watched set equal to dirs
func (w *Watcher) sync(dirs []string) {
	want := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		want[filepath.Clean(dir)] = true
	}

	for dir := range w.watched {
		if !want[dir] {
			// The directory may already be gone
			_ = w.fs.Remove(dir)
			delete(w.watched, dir)
		}
	}
	for dir := range want {
		if w.watched[dir] {
			continue
		}
		if err := w.fs.Add(dir); err != nil {
			w.logger.Warn().Err(err).Str("dir", dir).Msg("unable to watch directory")
			continue
		}
		w.watched[dir] = true
	}
}

// relevant filters events down to those that can change a check result
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if isConfigFile(event.Name) {
		return true
	}
	if _, ok := scanner.DetectLanguage(event.Name); ok {
		return true
	}
	// New directories need to be picked up by the next scan
	return event.Has(fsnotify.Create) && filepath.Ext(event.Name) == ""
}

func isConfigFile(path string) bool {
	switch filepath.Base(path) {
	case titanconfig.FileName, config.FileName, "package.json":
		return true
	}
	return false
}
