package mux

import (
    "context"
    "errors"
    "fmt"
    "io"

    "go.uber.org/zap"

    "flowmux/pkg/buffer"
    "flowmux/pkg/frame"
    "flowmux/pkg/stream"
)

// ErrUnknownChannel reports a frame whose channel id has no registered
// sink. The frame is dropped and counted; the session keeps going.
var ErrUnknownChannel = errors.New("mux: unknown channel")

// Demux reads frames off one inbound source and routes each payload to
// the writable sink registered for its channel, reconstructing the
// original per-channel byte streams from the interleaved wire data.
type Demux struct {
    opts  Options
    sinks map[uint8]stream.Writer
    stats counters
}

// NewDemux creates a demultiplexer. Register sinks before Run.
func NewDemux(opts Options) *Demux {
    return &Demux{opts: opts.withDefaults(), sinks: make(map[uint8]stream.Writer)}
}

// Register binds a sink to a channel id.
func (d *Demux) Register(channel uint8, sink stream.Writer) error {
    if _, dup := d.sinks[channel]; dup {
        return fmt.Errorf("mux: channel %d already registered", channel)
    }
    d.sinks[channel] = sink
    return nil
}

// Stats returns a snapshot of session metrics.
func (d *Demux) Stats() Stats { return d.stats.snapshot() }

// Run decodes frames from src until the transport ends. A zero-length
// frame ends its channel; transport end-of-stream ends every channel
// still open. Framing errors are terminal for the whole session because
// byte alignment can no longer be trusted. A failing sink terminates only
// its own channel.
func (d *Demux) Run(ctx context.Context, src stream.Reader) error {
    dec := frame.NewDecoder(d.opts.MaxFrame)
    log := d.opts.Logger
    for {
        if err := ctx.Err(); err != nil {
            d.closeAll()
            return err
        }
        f, err := dec.Next(src)
        switch {
        case err == nil:
        case err == buffer.ErrEmpty:
            select {
            case <-src.Ready():
            case <-ctx.Done():
                d.closeAll()
                return ctx.Err()
            }
            continue
        case err == io.EOF:
            // Clean transport end: finish whoever is still open.
            for ch, sink := range d.sinks {
                _ = sink.End()
                delete(d.sinks, ch)
            }
            return nil
        default:
            // Framing or transport failure: the session is unrecoverable.
            log.Error("demux session aborted", zap.Error(err))
            d.closeAll()
            return err
        }

        d.stats.framesIn.Add(1)
        d.stats.bytesIn.Add(uint64(len(f.Payload)))

        sink, ok := d.sinks[f.Channel]
        if !ok {
            // Malformed peers must not take down healthy channels.
            d.stats.unknownDrops.Add(1)
            log.Warn("dropping frame",
                zap.Uint8("channel", f.Channel), zap.Int("len", len(f.Payload)),
                zap.Error(ErrUnknownChannel))
            continue
        }

        if f.End() {
            if err := sink.End(); err != nil {
                log.Warn("channel sink rejected end", zap.Uint8("channel", f.Channel), zap.Error(err))
            }
            delete(d.sinks, f.Channel)
            log.Debug("demux channel ended", zap.Uint8("channel", f.Channel))
            continue
        }

        if err := stream.Push(ctx, sink, buffer.Bytes(f.Payload)); err != nil {
            if ctx.Err() != nil {
                d.closeAll()
                return ctx.Err()
            }
            // Channel-local consumer failure; siblings are unaffected.
            log.Warn("demux channel failed", zap.Uint8("channel", f.Channel), zap.Error(err))
            _ = sink.Close()
            delete(d.sinks, f.Channel)
        }
    }
}

func (d *Demux) closeAll() {
    for ch, sink := range d.sinks {
        _ = sink.Close()
        delete(d.sinks, ch)
    }
}
