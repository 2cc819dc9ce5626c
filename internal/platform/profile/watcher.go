package profile

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Logger defines the logging interface used by the watcher.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// debounceDelay lets editors finish their write-rename dance.
const debounceDelay = 200 * time.Millisecond

// Watcher reloads a profile file into a Provider when it changes.
type Watcher struct {
	path     string
	provider *Provider
	onChange func(*Profile)
	logger   Logger
}

// NewWatcher creates a watcher for path. onChange, when non-nil, runs
// after each successful reload.
func NewWatcher(path string, provider *Provider, onChange func(*Profile)) *Watcher {
	return &Watcher{
		path:     path,
		provider: provider,
		onChange: onChange,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the watcher.
func (w *Watcher) SetLogger(logger Logger) {
	w.logger = logger
}

// Run watches until ctx is cancelled. The containing directory is watched
// so atomic replace-by-rename is seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.logger.Info("watching device profile", "path", w.path)

	target := filepath.Clean(w.path)
	var (
		debounce *time.Timer
		reload   = make(chan struct{}, 1)
	)
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("profile watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	p, err := Load(w.path)
	if err != nil {
		// Keep serving the previous profile.
		w.logger.Warn("profile reload failed", "path", w.path, "error", err)
		return
	}
	w.provider.SetProfile(p)
	w.logger.Info("device profile reloaded", "path", w.path, "name", p.Name)
	if w.onChange != nil {
		w.onChange(p)
	}
}
