package stream

import (
    "fmt"
    "io"
    "sync"

    "flowmux/pkg/buffer"
)

// TransformFunc rewrites one chunk. It must not retain the input.
type TransformFunc func(buffer.Chunk) (buffer.Chunk, error)

// Transform is a writable sink chained to an internal readable source.
// Each written chunk passes through the transform function and lands in a
// single shared buffer, so the writable side reports saturation exactly
// when the readable side's buffer is full: a slow downstream consumer
// throttles the upstream producer through the one high-water mark.
type Transform struct {
    mu  sync.Mutex
    fn  TransformFunc
    out *buffer.Buffer

    state  State
    err    error
    closed bool

    drain chan struct{}
    ready chan struct{}
    done  chan struct{}
}

// TransformOptions tunes a Transform.
type TransformOptions struct {
    HighWaterMark int // shared buffer capacity in bytes (default 64 KiB)
}

func (o TransformOptions) withDefaults() TransformOptions {
    if o.HighWaterMark <= 0 { o.HighWaterMark = 64 * 1024 }
    return o
}

func NewTransform(fn TransformFunc, opts TransformOptions) *Transform {
    opts = opts.withDefaults()
    return &Transform{
        fn:    fn,
        out:   buffer.New(opts.HighWaterMark),
        drain: make(chan struct{}, 1),
        ready: make(chan struct{}, 1),
        done:  make(chan struct{}),
    }
}

// Write applies the transform and queues the result for the read side.
func (t *Transform) Write(c buffer.Chunk) (bool, error) {
    t.mu.Lock()
    defer t.mu.Unlock()
    if t.closed || t.state == StateErrored {
        if t.err != nil { return false, t.err }
        return false, buffer.ErrClosed
    }
    tc, err := t.fn(c)
    if err != nil {
        t.fail(fmt.Errorf("stream: transform: %w", err))
        return false, t.err
    }
    keep, eerr := t.out.Enqueue(tc)
    if eerr != nil { return false, eerr }
    if t.state == StateIdle { t.state = StateFlowing }
    if !keep { t.state = StatePaused }
    notify(t.ready)
    return keep, nil
}

// Read dequeues the next transformed chunk.
func (t *Transform) Read() (buffer.Chunk, error) {
    t.mu.Lock()
    defer t.mu.Unlock()
    if t.closed { return buffer.Chunk{}, buffer.ErrClosed }
    if t.state == StateErrored { return buffer.Chunk{}, t.err }

    wasFull := t.out.Full()
    c, err := t.out.Dequeue()
    switch err {
    case nil:
        if wasFull && !t.out.Full() {
            if t.state == StatePaused { t.state = StateFlowing }
            notify(t.drain)
        }
        return c, nil
    case io.EOF:
        if t.state != StateEnded {
            t.state = StateEnded
            close(t.done)
        }
        return buffer.Chunk{}, io.EOF
    default:
        return buffer.Chunk{}, err
    }
}

// End marks the writable side finished; the read side drains what is left
// and then reports io.EOF. Idempotent.
func (t *Transform) End() error {
    t.mu.Lock()
    defer t.mu.Unlock()
    if t.closed || t.state == StateErrored {
        if t.err != nil { return t.err }
        return buffer.ErrClosed
    }
    t.out.MarkEnded()
    notify(t.ready)
    return nil
}

func (t *Transform) Drain() <-chan struct{} { return t.drain }
func (t *Transform) Ready() <-chan struct{} { return t.ready }
func (t *Transform) Done() <-chan struct{}  { return t.done }

func (t *Transform) Err() error {
    t.mu.Lock()
    defer t.mu.Unlock()
    if t.state == StateErrored { return t.err }
    return nil
}

func (t *Transform) State() State {
    t.mu.Lock()
    defer t.mu.Unlock()
    return t.state
}

// Close aborts both sides and releases buffered chunks. Idempotent.
func (t *Transform) Close() error {
    t.mu.Lock()
    defer t.mu.Unlock()
    if t.closed { return nil }
    t.closed = true
    t.out.Discard()
    if t.state != StateEnded && t.state != StateErrored {
        t.fail(buffer.ErrClosed)
    }
    notify(t.ready)
    notify(t.drain)
    return nil
}

// fail marks the stage errored. Caller holds the lock.
func (t *Transform) fail(err error) {
    t.err = err
    if t.state != StateEnded && t.state != StateErrored {
        t.state = StateErrored
        close(t.done)
    }
    t.out.Discard()
    notify(t.ready)
    notify(t.drain)
}
