// Package watchdog fires a callback when a session has been idle for too
// long. Sessions touch the watchdog on every frame; a stalled peer is the
// only thing that lets the deadline arrive.
package watchdog

import (
    "sync"
    "time"
)

// Watchdog invokes expire once after idle elapses without a Touch.
type Watchdog struct {
    mu      sync.Mutex
    idle    time.Duration
    expire  func()
    last    time.Time
    fired   bool
    closeCh chan struct{}
    closed  bool

    nowFn func() time.Time // test hook
}

// New starts a watchdog. expire runs on the watchdog's own goroutine.
func New(idle time.Duration, expire func()) *Watchdog {
    w := &Watchdog{
        idle:    idle,
        expire:  expire,
        closeCh: make(chan struct{}),
        nowFn:   time.Now,
    }
    w.last = w.nowFn()
    go w.loop()
    return w
}

// Touch resets the idle deadline. Safe after Stop or expiry (no-op then).
func (w *Watchdog) Touch() {
    w.mu.Lock()
    w.last = w.nowFn()
    w.mu.Unlock()
}

// Stop cancels the watchdog without firing. Idempotent.
func (w *Watchdog) Stop() {
    w.mu.Lock()
    if w.closed {
        w.mu.Unlock()
        return
    }
    w.closed = true
    w.mu.Unlock()
    close(w.closeCh)
}

// Expired reports whether the callback has fired.
func (w *Watchdog) Expired() bool {
    w.mu.Lock()
    defer w.mu.Unlock()
    return w.fired
}

func (w *Watchdog) loop() {
    for {
        w.mu.Lock()
        d := w.last.Add(w.idle).Sub(w.nowFn())
        w.mu.Unlock()

        if d <= 0 {
            w.mu.Lock()
            w.fired = true
            w.mu.Unlock()
            w.expire()
            return
        }

        timer := time.NewTimer(d)
        select {
        case <-timer.C:
            // deadline may have moved; loop re-checks
        case <-w.closeCh:
            timer.Stop()
            return
        }
    }
}
