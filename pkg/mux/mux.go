package mux

import (
    "context"
    "errors"
    "fmt"
    "io"
    "sync"
    "time"

    "go.uber.org/zap"
    "golang.org/x/sync/errgroup"

    "flowmux/pkg/buffer"
    "flowmux/pkg/frame"
    "flowmux/pkg/rate"
    "flowmux/pkg/stream"
)

// Options tunes a Mux or Demux.
type Options struct {
    // MaxFrame caps a single frame's payload; source chunks above it are
    // fragmented into ordered frames on the same channel. Default 64 KiB.
    MaxFrame int
    // Rate, when positive, shapes each channel to roughly this many
    // payload bytes per second.
    Rate int64
    // Logger defaults to the process-global zap logger.
    Logger *zap.Logger
}

func (o Options) withDefaults() Options {
    if o.MaxFrame <= 0 { o.MaxFrame = 64 * 1024 }
    if o.Logger == nil { o.Logger = zap.L() }
    return o
}

// Mux drains registered sources and serializes their chunks as frames on
// one outbound conn. One pump goroutine runs per source; access to the
// conn is serialized so that encode+write of one frame is atomic.
type Mux struct {
    opts Options
    out  io.Writer
    wmu  sync.Mutex

    mu      sync.Mutex
    sources map[uint8]stream.Reader
    started bool

    stats counters
}

// New creates a multiplexer writing to out. When out also implements
// io.Closer it is closed after every channel completed.
func New(out io.Writer, opts Options) *Mux {
    return &Mux{opts: opts.withDefaults(), out: out, sources: make(map[uint8]stream.Reader)}
}

// Add registers a source under a channel id. All sources must be added
// before Run; duplicate ids are rejected.
func (m *Mux) Add(channel uint8, src stream.Reader) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.started { return errors.New("mux: already running") }
    if _, dup := m.sources[channel]; dup {
        return fmt.Errorf("mux: channel %d already registered", channel)
    }
    m.sources[channel] = src
    return nil
}

// Stats returns a snapshot of session metrics.
func (m *Mux) Stats() Stats { return m.stats.snapshot() }

// Run pumps every source until it ends, then closes the outbound conn.
// A failing source terminates only its own channel; Run reports such
// failures joined together after the surviving channels finish. Transport
// write errors abort the whole session.
func (m *Mux) Run(ctx context.Context) error {
    m.mu.Lock()
    if m.started {
        m.mu.Unlock()
        return errors.New("mux: already running")
    }
    m.started = true
    sources := make(map[uint8]stream.Reader, len(m.sources))
    for ch, src := range m.sources { sources[ch] = src }
    m.mu.Unlock()

    var (
        perrMu   sync.Mutex
        perrs    []error
    )
    g, ctx := errgroup.WithContext(ctx)
    for ch, src := range sources {
        ch, src := ch, src
        g.Go(func() error {
            err := m.pump(ctx, ch, src)
            if err == nil || errors.Is(err, context.Canceled) { return err }
            var te *transportError
            if errors.As(err, &te) { return err } // session-fatal
            // Channel-local failure: the siblings keep going.
            m.opts.Logger.Warn("mux channel failed",
                zap.Uint8("channel", ch), zap.Error(err))
            perrMu.Lock()
            perrs = append(perrs, fmt.Errorf("channel %d: %w", ch, err))
            perrMu.Unlock()
            return nil
        })
    }
    err := g.Wait()
    if cl, ok := m.out.(io.Closer); ok { _ = cl.Close() }
    if err != nil { return err }
    return errors.Join(perrs...)
}

// pump moves one source onto the wire until it ends.
func (m *Mux) pump(ctx context.Context, channel uint8, src stream.Reader) error {
    var bucket *rate.Bucket
    if m.opts.Rate > 0 { bucket = rate.NewBucket(m.opts.Rate, 2*m.opts.Rate) }
    scratch := make([]byte, 0, frame.HeaderSize+m.opts.MaxFrame)

    for {
        if err := ctx.Err(); err != nil { return err }
        c, err := src.Read()
        switch err {
        case nil:
            if c.Obj != nil {
                return fmt.Errorf("mux: channel %d produced an object-mode chunk; marshal it to bytes first", channel)
            }
            if err := m.emit(ctx, channel, c.Data, bucket, &scratch); err != nil {
                return err
            }
        case buffer.ErrEmpty:
            select {
            case <-src.Ready():
            case <-ctx.Done():
                return ctx.Err()
            }
        case io.EOF:
            // Zero-length frame: channel end-of-stream marker.
            if err := m.writeFrame(channel, nil, &scratch); err != nil { return err }
            m.opts.Logger.Debug("mux channel ended", zap.Uint8("channel", channel))
            return nil
        default:
            return err
        }
    }
}

// emit writes one chunk as one frame, fragmenting when it exceeds the
// frame cap. Fragments stay on the same channel in order.
func (m *Mux) emit(ctx context.Context, channel uint8, payload []byte, bucket *rate.Bucket, scratch *[]byte) error {
    // An empty data chunk has nothing to say on the wire; emitting it
    // would collide with the zero-length end-of-stream marker.
    limit := m.opts.MaxFrame
    if bucket != nil && bucket.Capacity() < int64(limit) {
        // a fragment above the burst size could never clear the bucket
        limit = int(bucket.Capacity())
    }
    for len(payload) > 0 {
        part := payload
        if len(part) > limit {
            part = payload[:limit]
            m.stats.fragments.Add(1)
        }
        if bucket != nil {
            for {
                ok, wait := bucket.Take(int64(len(part)))
                if ok { break }
                select {
                case <-time.After(wait):
                case <-ctx.Done():
                    return ctx.Err()
                }
            }
        }
        if err := m.writeFrame(channel, part, scratch); err != nil { return err }
        payload = payload[len(part):]
    }
    return nil
}

// writeFrame performs the atomic encode+write of a single frame.
func (m *Mux) writeFrame(channel uint8, payload []byte, scratch *[]byte) error {
    b := frame.Append((*scratch)[:0], channel, payload)
    *scratch = b[:0]
    m.wmu.Lock()
    _, err := m.out.Write(b)
    m.wmu.Unlock()
    if err != nil { return &transportError{err} }
    m.stats.framesOut.Add(1)
    m.stats.bytesOut.Add(uint64(len(payload)))
    return nil
}

// transportError marks write failures on the shared conn, which are fatal
// for the whole session rather than one channel.
type transportError struct{ err error }

func (e *transportError) Error() string { return "mux: transport: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }
