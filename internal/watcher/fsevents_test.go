package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// newDBRoot creates a pacman database root with an empty local dir.
func newDBRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "local"), 0755); err != nil {
		t.Fatalf("failed to create local dir: %v", err)
	}
	return root
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNew_NilCallback(t *testing.T) {
	if _, err := New(t.TempDir(), nil); err == nil {
		t.Fatal("New() expected error for nil callback")
	}
}

func TestNew_Dir(t *testing.T) {
	w, err := New("/var/lib/pacman", func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if w.Dir() != "/var/lib/pacman/local" {
		t.Errorf("Dir() = %q", w.Dir())
	}
	if w.debounce != DefaultDebounce {
		t.Errorf("debounce = %v, want %v", w.debounce, DefaultDebounce)
	}
}

func TestStart_MissingDirectory(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "nope"), func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := w.Start(); err == nil {
		w.Stop()
		t.Fatal("Start() expected error for missing local dir")
	}
}

func TestWatcher_DebouncesTransaction(t *testing.T) {
	root := newDBRoot(t)

	var calls atomic.Int32
	w, err := New(root, func(context.Context) error {
		calls.Add(1)
		return nil
	}, WithDebounce(100*time.Millisecond))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer w.Stop()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected the initial check to run once, got %d", got)
	}

	// One pacman transaction: several package dirs appear at once.
	for _, name := range []string{"foo-1.0-1", "bar-2.0-1", "baz-0.1-1"} {
		if err := os.Mkdir(filepath.Join(root, "local", name), 0755); err != nil {
			t.Fatalf("mkdir failed: %v", err)
		}
	}

	waitFor(t, "debounced callback", func() bool { return calls.Load() >= 2 })

	time.Sleep(300 * time.Millisecond)
	if got := calls.Load(); got != 2 {
		t.Errorf("expected events to coalesce into one callback, got %d calls", got)
	}
}

func TestWatcher_CallbackErrorKeepsWatching(t *testing.T) {
	root := newDBRoot(t)

	var calls atomic.Int32
	w, err := New(root, func(context.Context) error {
		calls.Add(1)
		return errors.New("check failed")
	}, WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer w.Stop()

	if err := os.Mkdir(filepath.Join(root, "local", "a-1-1"), 0755); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "first change", func() bool { return calls.Load() >= 2 })

	if err := os.Remove(filepath.Join(root, "local", "a-1-1")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "second change", func() bool { return calls.Load() >= 3 })
}

func TestWatcher_Refresh(t *testing.T) {
	root := newDBRoot(t)

	var refreshes atomic.Int32
	w, err := New(root, func(context.Context) error { return nil },
		WithRefresh(20*time.Millisecond, func(context.Context) error {
			refreshes.Add(1)
			return nil
		}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer w.Stop()

	waitFor(t, "refresh ticks", func() bool { return refreshes.Load() >= 2 })
}

func TestStop_CancelsCallbackContext(t *testing.T) {
	root := newDBRoot(t)

	var ctxSeen atomic.Value
	w, err := New(root, func(ctx context.Context) error {
		ctxSeen.Store(ctx)
		return nil
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}
	// Stop is idempotent.
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() failed: %v", err)
	}

	ctx := ctxSeen.Load().(context.Context)
	if ctx.Err() == nil {
		t.Error("callback context should be cancelled after Stop()")
	}
}
