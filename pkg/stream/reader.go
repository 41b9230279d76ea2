package stream

import (
    "fmt"
    "io"
    "sync"

    "flowmux/pkg/buffer"
)

// Producer generates the next chunk for a Readable. requested is a size
// hint in bytes; producers may return larger or smaller chunks. io.EOF
// signals end of data; any other error is terminal for the stream.
type Producer func(requested int) (buffer.Chunk, error)

// Reader is the pull side of a stream. Read never blocks: buffer.ErrEmpty
// means no data right now (wait on Ready), io.EOF means clean end.
type Reader interface {
    Read() (buffer.Chunk, error)
    // Ready is signaled when data may have become available or the state
    // changed. Capacity-1 channel; one signal can cover several events.
    Ready() <-chan struct{}
    State() State
    Close() error
}

// ReadableOptions tunes a Readable.
type ReadableOptions struct {
    HighWaterMark int // buffer capacity in bytes (default 64 KiB)
    ReadChunk     int // size hint passed to the producer (default 4 KiB)
}

func (o ReadableOptions) withDefaults() ReadableOptions {
    if o.HighWaterMark <= 0 { o.HighWaterMark = 64 * 1024 }
    if o.ReadChunk <= 0 { o.ReadChunk = 4 * 1024 }
    return o
}

// Readable wraps a bounded buffer and a producer callback. Refill from the
// producer is suppressed while the buffer sits at or over its high-water
// mark; a dequeue that drops it back under capacity re-enables refill.
type Readable struct {
    mu      sync.Mutex
    buf     *buffer.Buffer
    produce Producer
    opts    ReadableOptions
    state   State
    err     error
    ready   chan struct{}
    closed  bool
}

func NewReadable(p Producer, opts ReadableOptions) *Readable {
    opts = opts.withDefaults()
    return &Readable{
        buf:     buffer.New(opts.HighWaterMark),
        produce: p,
        opts:    opts,
        ready:   make(chan struct{}, 1),
    }
}

// Read dequeues the next chunk, topping the buffer back up from the
// producer when there is headroom. A queued chunk is returned immediately;
// refill happens after satisfying the read.
func (r *Readable) Read() (buffer.Chunk, error) {
    r.mu.Lock()
    defer r.mu.Unlock()

    if r.closed { return buffer.Chunk{}, buffer.ErrClosed }
    if r.state == StateErrored { return buffer.Chunk{}, r.err }

    c, derr := r.buf.Dequeue()
    if derr == buffer.ErrEmpty {
        r.refill()
        if r.state == StateErrored { return buffer.Chunk{}, r.err }
        c, derr = r.buf.Dequeue()
    }
    switch derr {
    case nil:
        r.state = StateFlowing
        r.refill()
        if r.buf.Full() { r.state = StatePaused }
        return c, nil
    case io.EOF:
        r.state = StateEnded
        return buffer.Chunk{}, io.EOF
    default:
        return buffer.Chunk{}, derr
    }
}

// refill pulls from the producer until the buffer reports full, the
// producer ends, or it fails. Caller holds the lock.
func (r *Readable) refill() {
    for !r.buf.Full() && !r.buf.Ended() && r.state != StateErrored {
        c, err := r.produce(r.opts.ReadChunk)
        if err == io.EOF {
            r.buf.MarkEnded()
            notify(r.ready)
            return
        }
        if err != nil {
            r.fail(fmt.Errorf("stream: producer: %w", err))
            return
        }
        keep, eerr := r.buf.Enqueue(c)
        if eerr != nil {
            r.fail(eerr)
            return
        }
        notify(r.ready)
        if !keep { return }
    }
}

// fail marks the stream errored and releases buffered chunks. Caller holds
// the lock.
func (r *Readable) fail(err error) {
    r.err = err
    r.state = StateErrored
    r.buf.Discard()
    notify(r.ready)
}

func (r *Readable) Ready() <-chan struct{} { return r.ready }

func (r *Readable) State() State {
    r.mu.Lock()
    defer r.mu.Unlock()
    return r.state
}

// Err returns the terminal error, if any.
func (r *Readable) Err() error {
    r.mu.Lock()
    defer r.mu.Unlock()
    return r.err
}

// Close releases buffered chunks and makes further reads fail. Idempotent.
func (r *Readable) Close() error {
    r.mu.Lock()
    defer r.mu.Unlock()
    if r.closed { return nil }
    r.closed = true
    r.buf.Discard()
    if r.state != StateEnded && r.state != StateErrored {
        r.state = StateErrored
        r.err = buffer.ErrClosed
    }
    notify(r.ready)
    return nil
}
