package stream

import (
    "errors"
    "io"
    "sync/atomic"
    "testing"
    "time"

    "flowmux/pkg/buffer"
)

// sliceProducer yields fixed chunks then io.EOF, counting calls.
func sliceProducer(chunks []string, calls *int32) Producer {
    i := 0
    return func(_ int) (buffer.Chunk, error) {
        if calls != nil { atomic.AddInt32(calls, 1) }
        if i >= len(chunks) { return buffer.Chunk{}, io.EOF }
        c := buffer.Bytes([]byte(chunks[i]))
        i++
        return c, nil
    }
}

func TestReadableDrainsProducer(t *testing.T) {
    r := NewReadable(sliceProducer([]string{"aa", "bb", "cc"}, nil), ReadableOptions{HighWaterMark: 1024})
    var got []string
    for {
        c, err := r.Read()
        if err == io.EOF { break }
        if err != nil { t.Fatalf("read: %v", err) }
        got = append(got, string(c.Data))
    }
    if len(got) != 3 || got[0] != "aa" || got[1] != "bb" || got[2] != "cc" {
        t.Fatalf("unexpected chunks: %v", got)
    }
    if r.State() != StateEnded { t.Fatalf("state=%v, want ended", r.State()) }
}

func TestReadableThrottlesProducer(t *testing.T) {
    // Producer emits 4-byte chunks forever; hwm of 8 must cap prefetch.
    var calls int32
    p := func(_ int) (buffer.Chunk, error) {
        atomic.AddInt32(&calls, 1)
        return buffer.Bytes([]byte("abcd")), nil
    }
    r := NewReadable(p, ReadableOptions{HighWaterMark: 8})

    if _, err := r.Read(); err != nil { t.Fatalf("read: %v", err) }
    // First read pulls until the buffer reports full, then stops. With a
    // 8-byte hwm and 4-byte chunks that is at most 3 producer calls (one
    // consumed, two buffered).
    if n := atomic.LoadInt32(&calls); n > 3 {
        t.Fatalf("producer called %d times, throttle failed", n)
    }
}

func TestReadableProducerError(t *testing.T) {
    boom := errors.New("boom")
    first := true
    p := func(_ int) (buffer.Chunk, error) {
        if first {
            first = false
            return buffer.Bytes([]byte("ok")), nil
        }
        return buffer.Chunk{}, boom
    }
    r := NewReadable(p, ReadableOptions{HighWaterMark: 1})

    // The queued chunk is still served; the failure surfaces on the next read.
    if c, err := r.Read(); err != nil || string(c.Data) != "ok" {
        t.Fatalf("first read: c=%q err=%v", c.Data, err)
    }
    if _, err := r.Read(); !errors.Is(err, boom) {
        t.Fatalf("expected producer error, got %v", err)
    }
    if r.State() != StateErrored { t.Fatalf("state=%v, want errored", r.State()) }
}

func TestReadableClose(t *testing.T) {
    r := NewReadable(sliceProducer([]string{"x"}, nil), ReadableOptions{})
    if err := r.Close(); err != nil { t.Fatalf("close: %v", err) }
    if _, err := r.Read(); err != buffer.ErrClosed {
        t.Fatalf("read after close: got %v, want ErrClosed", err)
    }
    if err := r.Close(); err != nil { t.Fatalf("second close: %v", err) }
}

func TestWritableConsumesInOrder(t *testing.T) {
    var got []string
    done := make(chan struct{})
    w := NewWritable(func(c buffer.Chunk) error {
        got = append(got, string(c.Data))
        return nil
    }, WritableOptions{OnEnd: func() { close(done) }})

    for _, s := range []string{"1", "2", "3"} {
        if _, err := w.Write(buffer.Bytes([]byte(s))); err != nil {
            t.Fatalf("write %q: %v", s, err)
        }
    }
    if err := w.End(); err != nil { t.Fatalf("end: %v", err) }
    select {
    case <-done:
    case <-time.After(2 * time.Second):
        t.Fatalf("sink did not end")
    }
    if len(got) != 3 || got[0] != "1" || got[1] != "2" || got[2] != "3" {
        t.Fatalf("unexpected order: %v", got)
    }
    if w.State() != StateEnded { t.Fatalf("state=%v, want ended", w.State()) }
}

func TestWritableDrainSignal(t *testing.T) {
    release := make(chan struct{})
    w := NewWritable(func(buffer.Chunk) error {
        <-release
        return nil
    }, WritableOptions{HighWaterMark: 4})

    // Saturate: consumer is blocked, so chunks pile up.
    accepted, err := w.Write(buffer.Bytes([]byte("abcd")))
    if err != nil { t.Fatalf("write: %v", err) }
    if accepted { t.Fatalf("expected saturation report") }

    select {
    case <-w.Drain():
        t.Fatalf("drain fired before any capacity freed")
    default:
    }

    close(release)
    select {
    case <-w.Drain():
    case <-time.After(2 * time.Second):
        t.Fatalf("drain did not fire after consumer caught up")
    }

    if accepted, err := w.Write(buffer.Bytes([]byte("ef"))); err != nil || !accepted {
        t.Fatalf("write after drain: accepted=%v err=%v", accepted, err)
    }
    w.End()
}

func TestWritableEndIdempotentAndWriteAfterEnd(t *testing.T) {
    w := NewWritable(func(buffer.Chunk) error { return nil }, WritableOptions{})
    if err := w.End(); err != nil { t.Fatalf("end: %v", err) }
    <-w.Done()
    if err := w.End(); err != nil { t.Fatalf("double end must be a no-op, got %v", err) }
    if _, err := w.Write(buffer.Bytes([]byte("x"))); err == nil {
        t.Fatalf("write after end must fail")
    }
}

func TestWritableConsumerError(t *testing.T) {
    boom := errors.New("sink failed")
    w := NewWritable(func(buffer.Chunk) error { return boom }, WritableOptions{})
    if _, err := w.Write(buffer.Bytes([]byte("x"))); err != nil {
        t.Fatalf("write: %v", err)
    }
    select {
    case <-w.Done():
    case <-time.After(2 * time.Second):
        t.Fatalf("sink did not terminate on consumer error")
    }
    if err := w.Err(); !errors.Is(err, boom) {
        t.Fatalf("Err()=%v, want wrapped consumer error", err)
    }
    if _, err := w.Write(buffer.Bytes([]byte("y"))); err == nil {
        t.Fatalf("write after failure must error")
    }
}
