package watch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"leafspec/internal/config"
	"leafspec/internal/pipeline"
	"leafspec/internal/testsupport"
	"leafspec/internal/watch"
)

var cubeSpec = testsupport.CubeSpec{
	Wavelengths: []float64{450, 550, 650},
	BandValues:  []float64{0.5, 1.0, 1.5},
}

// runWatcher starts a watcher whose trigger bumps fired, and registers
// cleanup that cancels it and verifies a clean stop.
func runWatcher(t *testing.T, cfg *config.Config, fired *atomic.Int64) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := watch.NewWatcher(cfg, nil, func(context.Context) error {
		fired.Add(1)
		return nil
	})
	go func() { done <- w.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop after cancel")
		}
	})

	// Give Run a beat to register the tree before the test mutates it.
	time.Sleep(250 * time.Millisecond)
}

func waitFired(t *testing.T, fired *atomic.Int64, want int64) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for fired.Load() < want {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %d triggers (have %d)", want, fired.Load())
		default:
			time.Sleep(25 * time.Millisecond)
		}
	}
}

func TestWatcherFiresOnceAfterQuietWindow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.WatchDebounceSeconds = 1

	var fired atomic.Int64
	runWatcher(t, cfg, &fired)

	testsupport.WriteCubePair(t, cfg.Paths.RawDir, "leaf_visnir_D1", cubeSpec)
	waitFired(t, &fired, 1)

	// The header and cube landed inside one debounce window, so the burst
	// must collapse into a single trigger.
	time.Sleep(1300 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("fired = %d, want 1", got)
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.WatchDebounceSeconds = 1

	var fired atomic.Int64
	runWatcher(t, cfg, &fired)

	if err := os.WriteFile(filepath.Join(cfg.Paths.RawDir, "notes.txt"), []byte("field log\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	time.Sleep(1600 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("fired = %d, want 0", got)
	}
}

func TestWatcherFollowsNewSubdirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.WatchDebounceSeconds = 1

	var fired atomic.Int64
	runWatcher(t, cfg, &fired)

	subdir := filepath.Join(cfg.Paths.RawDir, "plot2")
	if err := os.Mkdir(subdir, 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	waitFired(t, &fired, 1)

	testsupport.WriteCubePair(t, subdir, "leaf_visnir_D2", cubeSpec)
	waitFired(t, &fired, 2)
}

func TestWatcherFailsWithoutRawRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.RawDir = filepath.Join(cfg.Paths.RawDir, "absent")

	w := watch.NewWatcher(cfg, nil, nil)
	err := w.Run(context.Background())
	if !errors.Is(err, pipeline.ErrInfrastructure) {
		t.Fatalf("Run() error = %v, want infrastructure marker", err)
	}
}
