package app

import (
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
)

// HotReloader watches a binary and reports when a newer build replaces it,
// so a kiosk left running on the line can pick up a redeploy.
type HotReloader struct {
	path     string
	clock    clock.Clock
	interval time.Duration

	mu       sync.Mutex
	baseline time.Time
	stopCh   chan struct{}
	onNew    func()
}

// NewHotReloader watches the running executable. It returns nil if the
// executable cannot be located.
func NewHotReloader(c clock.Clock, interval time.Duration) *HotReloader {
	execPath, err := os.Executable()
	if err != nil {
		return nil
	}
	// go build replaces the file; follow symlinks to watch the real one.
	if real, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = real
	}
	return WatchFile(execPath, c, interval)
}

// WatchFile watches an arbitrary file. It returns nil if the file cannot be
// stat'ed.
func WatchFile(path string, c clock.Clock, interval time.Duration) *HotReloader {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if c == nil {
		c = clock.New()
	}
	return &HotReloader{path: path, clock: c, interval: interval, baseline: info.ModTime()}
}

// OnNewBinary sets the callback run, on the watcher goroutine, the first
// time a newer file is seen.
func (h *HotReloader) OnNewBinary(fn func()) {
	h.mu.Lock()
	h.onNew = fn
	h.mu.Unlock()
}

// Start begins polling in a background goroutine.
func (h *HotReloader) Start() {
	h.mu.Lock()
	h.stopCh = make(chan struct{})
	stop := h.stopCh
	h.mu.Unlock()
	go h.watch(stop)
}

// Stop ends polling.
func (h *HotReloader) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopCh != nil {
		close(h.stopCh)
		h.stopCh = nil
	}
}

func (h *HotReloader) watch(stop chan struct{}) {
	ticker := h.clock.Ticker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !h.changed() {
				continue
			}
			h.mu.Lock()
			fn := h.onNew
			h.mu.Unlock()
			if fn != nil {
				fn()
			}
			return
		}
	}
}

func (h *HotReloader) changed() bool {
	info, err := os.Stat(h.path)
	if err != nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return info.ModTime().After(h.baseline)
}

// Path returns the watched file.
func (h *HotReloader) Path() string {
	return h.path
}

// Baseline returns the modification time newer builds are compared with.
func (h *HotReloader) Baseline() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.baseline
}

// ResetBaseline accepts the current file as known, e.g. after the user
// declined a restart.
func (h *HotReloader) ResetBaseline() {
	if info, err := os.Stat(h.path); err == nil {
		h.mu.Lock()
		h.baseline = info.ModTime()
		h.mu.Unlock()
	}
}

// Restart replaces the current process with the watched binary, keeping
// arguments and environment. It does not return on success.
func (h *HotReloader) Restart() error {
	return syscall.Exec(h.path, os.Args, os.Environ())
}
