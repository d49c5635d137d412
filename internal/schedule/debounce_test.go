package schedule

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

const interval = 350 * time.Millisecond

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestArmCoalesces(t *testing.T) {
	mock := clock.NewMock()
	var runs atomic.Int32
	d := NewDebouncer(mock, interval, func() { runs.Add(1) })

	for i := 0; i < 50; i++ {
		d.Arm()
	}
	if !d.Pending() {
		t.Fatal("expected a pending run")
	}
	mock.Add(interval)
	waitFor(t, func() bool { return runs.Load() == 1 })

	if d.Pending() {
		t.Error("run should no longer be pending")
	}
	mock.Add(10 * interval)
	time.Sleep(5 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

func TestArmAgainAfterFire(t *testing.T) {
	mock := clock.NewMock()
	var runs atomic.Int32
	d := NewDebouncer(mock, interval, func() { runs.Add(1) })

	d.Arm()
	mock.Add(interval)
	waitFor(t, func() bool { return runs.Load() == 1 })
	d.Arm()
	mock.Add(interval)
	waitFor(t, func() bool { return runs.Load() == 2 })
}

func TestCancel(t *testing.T) {
	mock := clock.NewMock()
	var runs atomic.Int32
	d := NewDebouncer(mock, interval, func() { runs.Add(1) })

	if d.Cancel() {
		t.Error("nothing was pending")
	}
	d.Arm()
	if !d.Cancel() {
		t.Error("expected Cancel to report a pending run")
	}
	mock.Add(2 * interval)
	time.Sleep(5 * time.Millisecond)
	if got := runs.Load(); got != 0 {
		t.Errorf("cancelled run executed %d times", got)
	}
}

func TestFlush(t *testing.T) {
	mock := clock.NewMock()
	var runs atomic.Int32
	d := NewDebouncer(mock, interval, func() { runs.Add(1) })

	d.Arm()
	d.Flush()
	if got := runs.Load(); got != 1 {
		t.Fatalf("flush should run immediately, runs = %d", got)
	}
	mock.Add(2 * interval)
	time.Sleep(5 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Errorf("flush must replace the pending run, runs = %d", got)
	}
}
