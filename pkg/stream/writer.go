package stream

import (
    "fmt"
    "io"
    "sync"

    "flowmux/pkg/buffer"
)

// Consumer handles one chunk on the sink side. Chunks are delivered
// strictly in FIFO order from a single goroutine. Any error is terminal
// for the stream.
type Consumer func(buffer.Chunk) error

// Writer is the push side of a stream. Write never blocks: accepted=false
// with a nil error means the chunk was stored but the sink is saturated
// (wait on Drain before writing more); buffer.ErrFull means the chunk was
// refused because the previous saturation was ignored.
type Writer interface {
    Write(buffer.Chunk) (accepted bool, err error)
    // Drain is signaled once per full-to-below-capacity transition.
    Drain() <-chan struct{}
    End() error
    // Done is closed when the sink reached Ended or Errored.
    Done() <-chan struct{}
    Err() error
    Close() error
}

// WritableOptions tunes a Writable.
type WritableOptions struct {
    HighWaterMark int    // buffer capacity in bytes (default 64 KiB)
    OnEnd         func() // fired exactly once when the sink ends cleanly
}

func (o WritableOptions) withDefaults() WritableOptions {
    if o.HighWaterMark <= 0 { o.HighWaterMark = 64 * 1024 }
    return o
}

// Writable wraps a bounded buffer and a consumer callback. A dedicated
// goroutine drains the queue so Write itself never blocks on the consumer.
type Writable struct {
    mu      sync.Mutex
    buf     *buffer.Buffer
    consume Consumer
    opts    WritableOptions

    state  State
    err    error
    closed bool

    drain chan struct{}
    work  chan struct{}
    done  chan struct{}
}

func NewWritable(c Consumer, opts WritableOptions) *Writable {
    opts = opts.withDefaults()
    w := &Writable{
        buf:     buffer.New(opts.HighWaterMark),
        consume: c,
        opts:    opts,
        drain:   make(chan struct{}, 1),
        work:    make(chan struct{}, 1),
        done:    make(chan struct{}),
    }
    go w.run()
    return w
}

// Write enqueues the chunk for consumption. The bool result is the
// backpressure signal: false means stop writing until Drain fires.
func (w *Writable) Write(c buffer.Chunk) (bool, error) {
    w.mu.Lock()
    if w.closed || w.state == StateErrored {
        err := w.err
        w.mu.Unlock()
        if err == nil { err = buffer.ErrClosed }
        return false, err
    }
    keep, err := w.buf.Enqueue(c)
    if err != nil {
        w.mu.Unlock()
        return false, err
    }
    if w.state == StateIdle { w.state = StateFlowing }
    if !keep { w.state = StatePaused }
    w.mu.Unlock()
    notify(w.work)
    return keep, nil
}

// End marks that no further chunks will be written. The sink transitions
// to Ended once the queue empties. Calling End twice is a no-op.
func (w *Writable) End() error {
    w.mu.Lock()
    if w.closed || w.state == StateErrored {
        err := w.err
        w.mu.Unlock()
        if err == nil { err = buffer.ErrClosed }
        return err
    }
    if !w.buf.Ended() { w.buf.MarkEnded() }
    w.mu.Unlock()
    notify(w.work)
    return nil
}

func (w *Writable) Drain() <-chan struct{} { return w.drain }
func (w *Writable) Done() <-chan struct{}  { return w.done }

func (w *Writable) Err() error {
    w.mu.Lock()
    defer w.mu.Unlock()
    if w.state == StateErrored { return w.err }
    return nil
}

func (w *Writable) State() State {
    w.mu.Lock()
    defer w.mu.Unlock()
    return w.state
}

// Close aborts the sink: buffered chunks are released and later writes
// fail. Idempotent.
func (w *Writable) Close() error {
    w.mu.Lock()
    if w.closed {
        w.mu.Unlock()
        return nil
    }
    w.closed = true
    w.buf.Discard()
    if w.state != StateEnded && w.state != StateErrored {
        w.state = StateErrored
        w.err = buffer.ErrClosed
    }
    w.mu.Unlock()
    notify(w.work)
    return nil
}

// run is the consumer loop: dequeue in FIFO order, invoke the consumer
// outside the lock, fire drain on each full-to-below transition.
func (w *Writable) run() {
    defer close(w.done)
    for {
        w.mu.Lock()
        if w.closed && w.state == StateErrored {
            w.mu.Unlock()
            return
        }
        wasFull := w.buf.Full()
        c, err := w.buf.Dequeue()
        w.mu.Unlock()

        switch err {
        case nil:
            if cerr := w.consume(c); cerr != nil {
                w.fail(fmt.Errorf("stream: consumer: %w", cerr))
                return
            }
            // drain fires only once the chunk is actually consumed
            if wasFull {
                w.mu.Lock()
                if !w.buf.Full() {
                    if w.state == StatePaused { w.state = StateFlowing }
                    notify(w.drain)
                }
                w.mu.Unlock()
            }
        case buffer.ErrEmpty:
            <-w.work
        case io.EOF:
            w.mu.Lock()
            w.state = StateEnded
            w.mu.Unlock()
            if w.opts.OnEnd != nil { w.opts.OnEnd() }
            return
        default: // discarded via Close
            return
        }
    }
}

func (w *Writable) fail(err error) {
    w.mu.Lock()
    w.err = err
    w.state = StateErrored
    w.buf.Discard()
    w.mu.Unlock()
    notify(w.drain)
}
