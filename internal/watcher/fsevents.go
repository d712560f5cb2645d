package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/blackwell-systems/aurkonsult/internal/logger"
)

// DefaultDebounce is how long the local database must stay quiet before a
// change is reported.
const DefaultDebounce = 2 * time.Second

// Func is a callback run by the Watcher.
type Func func(ctx context.Context) error

// Watcher calls onChange after the pacman local database changes and,
// when configured, calls onRefresh on a fixed interval. Callbacks never
// run concurrently with each other.
type Watcher struct {
	dir      string
	onChange Func
	debounce time.Duration

	refresh   time.Duration
	onRefresh Func

	fsw      *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before onChange runs.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithRefresh runs fn every interval. A zero interval disables it.
func WithRefresh(interval time.Duration, fn Func) Option {
	return func(w *Watcher) {
		w.refresh = interval
		w.onRefresh = fn
	}
}

// New creates a Watcher for the pacman database rooted at dbPath.
func New(dbPath string, onChange Func, opts ...Option) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("change callback cannot be nil")
	}
	w := &Watcher{
		dir:      filepath.Join(dbPath, "local"),
		onChange: onChange,
		debounce: DefaultDebounce,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Dir returns the directory being watched.
func (w *Watcher) Dir() string {
	return w.dir
}

// Start runs onChange once, then watches for changes in the background.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.fsw = fsw
	w.ctx, w.cancel = context.WithCancel(context.Background())

	w.run("initial check", w.onChange)

	w.wg.Add(1)
	go w.loop()

	logger.Logger().Debugw("watching local database", "dir", w.dir, "debounce", w.debounce, "refresh", w.refresh)
	return nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var debounceC <-chan time.Time
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	var tickC <-chan time.Time
	if w.refresh > 0 && w.onRefresh != nil {
		ticker := time.NewTicker(w.refresh)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			logger.Logger().Debugw("local database event", "op", ev.Op.String(), "name", ev.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			debounceC = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Logger().Warnw("file watcher error", "error", err)

		case <-debounceC:
			debounceC = nil
			w.run("local database changed", w.onChange)

		case <-tickC:
			w.run("catalog refresh", w.onRefresh)

		case <-w.stopCh:
			return
		}
	}
}

// relevant filters out attribute-only changes.
func relevant(ev fsnotify.Event) bool {
	return ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0
}

func (w *Watcher) run(what string, fn Func) {
	if err := fn(w.ctx); err != nil {
		logger.Logger().Warnw("watcher callback failed", "trigger", what, "error", err)
	}
}

// Stop halts the watcher and waits for a running callback to return.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.cancel != nil {
			w.cancel()
		}
		w.wg.Wait()
		if w.fsw != nil {
			err = w.fsw.Close()
		}
	})
	return err
}
