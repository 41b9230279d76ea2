// Package rate provides a token bucket used for per-channel shaping of
// multiplexed traffic.
package rate

import (
    "sync"
    "time"
)

// Bucket is a simple token bucket: capacity tokens, refilled at rate
// tokens per second.
type Bucket struct {
    mu       sync.Mutex
    capacity int64
    tokens   int64
    rate     int64
    last     time.Time
}

// NewBucket creates a bucket refilling at ratePerSec; capacity <= 0 defaults
// to one second of burst.
func NewBucket(ratePerSec, capacity int64) *Bucket {
    if capacity <= 0 { capacity = ratePerSec }
    return &Bucket{capacity: capacity, tokens: capacity, rate: ratePerSec, last: time.Now()}
}

// Capacity returns the burst size. Requests above it can never succeed in
// one Take; callers must split them.
func (b *Bucket) Capacity() int64 { return b.capacity }

// Take tries to consume n tokens. When the bucket is short it returns the
// duration after which the request would fit.
func (b *Bucket) Take(n int64) (ok bool, wait time.Duration) {
    b.mu.Lock()
    defer b.mu.Unlock()
    now := time.Now()
    if dt := now.Sub(b.last); dt > 0 {
        add := (b.rate * dt.Nanoseconds()) / int64(time.Second)
        if add > 0 {
            b.tokens += add
            if b.tokens > b.capacity { b.tokens = b.capacity }
            b.last = now
        }
    }
    if b.tokens >= n {
        b.tokens -= n
        return true, 0
    }
    need := n - b.tokens
    return false, time.Duration((need * int64(time.Second)) / b.rate)
}
