package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"photographer-backend/internal/cache"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrNoConfigFile is returned when watching a loader without a file layer.
var ErrNoConfigFile = errors.New("no configuration file to watch")

// ChangeFunc is called after a successful reload with the configuration it
// replaced.
type ChangeFunc func(previous, current *Config)

// Watcher reloads the configuration when its YAML file changes. Invalid
// files are logged and the previous configuration stays in effect.
type Watcher struct {
	loader   *Loader
	path     string
	debounce time.Duration
	logger   *zap.Logger

	mu        sync.RWMutex
	current   *Config
	callbacks []ChangeFunc

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	done    chan struct{}
}

func NewWatcher(loader *Loader, initial *Config, logger *zap.Logger) (*Watcher, error) {
	if loader.Path() == "" {
		return nil, ErrNoConfigFile
	}
	path, err := filepath.Abs(loader.Path())
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		loader:   loader,
		path:     path,
		debounce: 500 * time.Millisecond,
		logger:   logger.Named("config"),
		current:  initial,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// OnChange registers fn. Callbacks run in registration order on the watcher
// goroutine.
func (w *Watcher) OnChange(fn ChangeFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Current returns the configuration in effect.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start watches the directory of the file, so editors that replace the file
// by renaming are still noticed.
func (w *Watcher) Start() error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		fsWatcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.watcher = fsWatcher

	go w.loop()
	w.logger.Info("Configuration hot reloading enabled", zap.String("file", w.path))
	return nil
}

// Stop ends the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	if w.watcher == nil {
		return
	}
	close(w.stopCh)
	<-w.done
}

func (w *Watcher) loop() {
	defer close(w.done)
	defer w.watcher.Close()

	var timer *time.Timer
	reload := make(chan struct{}, 1)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

func (w *Watcher) reload() {
	next, err := w.loader.Load()
	if err != nil {
		w.logger.Error("Invalid configuration after reload, keeping previous", zap.Error(err))
		return
	}

	w.mu.Lock()
	previous := w.current
	w.current = next
	callbacks := append([]ChangeFunc(nil), w.callbacks...)
	w.mu.Unlock()

	for _, fn := range callbacks {
		w.notify(fn, previous, next)
	}
	w.logger.Info("Configuration reloaded", zap.Int("callbacks", len(callbacks)))
}

func (w *Watcher) notify(fn ChangeFunc, previous, current *Config) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Configuration callback panicked", zap.Any("panic", r))
		}
	}()
	fn(previous, current)
}

// PolicyReconfigurer applies cache policies at runtime.
type PolicyReconfigurer interface {
	Reconfigure(policies map[string]cache.Policy) error
}

// ReloadCachePolicies returns a ChangeFunc that pushes changed namespace
// policies into r. Changes to any other section only take effect after a
// restart, which is logged.
func ReloadCachePolicies(r PolicyReconfigurer, logger *zap.Logger) ChangeFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(previous, current *Config) {
		if !reflect.DeepEqual(previous.Cache, current.Cache) {
			if err := r.Reconfigure(current.Cache.Namespaces); err != nil {
				logger.Error("Failed to apply cache policies", zap.Error(err))
			}
		}

		before, after := *previous, *current
		before.Cache, after.Cache = Cache{}, Cache{}
		before.LoadedFrom, after.LoadedFrom = nil, nil
		if !reflect.DeepEqual(before, after) {
			logger.Warn("Configuration changed outside cache policies; restart to apply")
		}
	}
}
