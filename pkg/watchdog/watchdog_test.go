package watchdog

import (
    "testing"
    "time"
)

func TestExpiresWhenIdle(t *testing.T) {
    fired := make(chan struct{})
    w := New(20*time.Millisecond, func() { close(fired) })
    select {
    case <-fired:
    case <-time.After(2 * time.Second):
        t.Fatalf("never expired")
    }
    if !w.Expired() { t.Fatalf("Expired() = false after firing") }
}

func TestTouchDefersExpiry(t *testing.T) {
    fired := make(chan struct{})
    w := New(80*time.Millisecond, func() { close(fired) })
    defer w.Stop()

    // keep touching for a few deadlines' worth of time
    for i := 0; i < 8; i++ {
        time.Sleep(20 * time.Millisecond)
        w.Touch()
        select {
        case <-fired:
            t.Fatalf("expired despite activity")
        default:
        }
    }
    select {
    case <-fired:
    case <-time.After(2 * time.Second):
        t.Fatalf("never expired after activity stopped")
    }
}

func TestStopPreventsExpiry(t *testing.T) {
    fired := make(chan struct{})
    w := New(30*time.Millisecond, func() { close(fired) })
    w.Stop()
    w.Stop() // idempotent
    select {
    case <-fired:
        t.Fatalf("expired after Stop")
    case <-time.After(100 * time.Millisecond):
    }
}
