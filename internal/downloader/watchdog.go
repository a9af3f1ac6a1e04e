package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// ErrStalled marks an attempt aborted because no bytes arrived within the
// stall timeout
var ErrStalled = errors.New("download stalled")

// stallWatchdog cancels an attempt once it has gone timeout without progress
type stallWatchdog struct {
	timeout time.Duration
	timer   *time.Timer
	fired   atomic.Bool
}

func newStallWatchdog(timeout time.Duration, cancel context.CancelFunc) *stallWatchdog {
	w := &stallWatchdog{timeout: timeout}
	if timeout > 0 {
		w.timer = time.AfterFunc(timeout, func() {
			w.fired.Store(true)
			cancel()
		})
	}
	return w
}

// touch re-arms the timer after progress
func (w *stallWatchdog) touch() {
	if w.timer != nil && !w.fired.Load() {
		w.timer.Reset(w.timeout)
	}
}

func (w *stallWatchdog) stop() {
	if w.timer != nil {
		w.timer.Stop()
	}
}

// wrap tags err with ErrStalled when the watchdog caused it
func (w *stallWatchdog) wrap(err error) error {
	if err == nil || !w.fired.Load() {
		return err
	}
	return fmt.Errorf("%w (no data for %s): %w", ErrStalled, w.timeout, err)
}

// watchedReader touches the watchdog on every successful read
type watchedReader struct {
	r        io.Reader
	watchdog *stallWatchdog
}

func (r *watchedReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.watchdog.touch()
	}
	return n, err
}
