package app

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestHotReloaderDetectsNewerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bin")
	if err := os.WriteFile(path, []byte("v1"), 0o755); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatal(err)
	}

	mock := clock.NewMock()
	h := WatchFile(path, mock, 2*time.Second)
	if h == nil {
		t.Fatal("WatchFile returned nil")
	}
	var fired atomic.Int32
	h.OnNewBinary(func() { fired.Add(1) })
	h.Start()
	defer h.Stop()

	mock.Add(2 * time.Second)
	time.Sleep(5 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("unchanged file reported as new")
	}

	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool {
		mock.Add(2 * time.Second)
		return fired.Load() == 1
	})

	h.ResetBaseline()
	if !h.Baseline().After(old) {
		t.Errorf("baseline = %v, want the new modification time", h.Baseline())
	}
}

func TestWatchFileMissing(t *testing.T) {
	if h := WatchFile(filepath.Join(t.TempDir(), "absent"), nil, time.Second); h != nil {
		t.Error("expected nil for a missing file")
	}
}
