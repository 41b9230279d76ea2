package main

import (
    "context"
    "fmt"
    "os"
    "os/signal"
    "path/filepath"
    "syscall"
    "time"

    "go.uber.org/zap"

    "flowmux/pkg/buffer"
    "flowmux/pkg/config"
    "flowmux/pkg/mux"
    "flowmux/pkg/observability"
    "flowmux/pkg/stream"
    "flowmux/pkg/transport"
    "flowmux/pkg/transports"
    "flowmux/pkg/watchdog"
)

// run is the main entry point after CLI parsing.
func run(opts Options) int {
    cfg, err := config.Load(opts.ConfigPath)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
        return 1
    }
    if opts.Listen != "" { cfg.Transport.Listen = opts.Listen }
    if opts.Kind != "" { cfg.Transport.Kind = opts.Kind }

    logger, err := observability.SetupLogger(cfg.Log)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
        return 1
    }
    defer func() { _ = logger.Sync() }()

    if opts.Channels < 1 || opts.Channels > 255 {
        zap.L().Error("channel count out of range", zap.Int("channels", opts.Channels))
        return 1
    }
    if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
        zap.L().Error("output dir", zap.Error(err))
        return 1
    }

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    tr, err := transports.New(cfg.Transport.Kind)
    if err != nil {
        zap.L().Error("transport init failed", zap.Error(err))
        return 1
    }
    l, err := tr.Listen(ctx, cfg.Transport.Listen)
    if err != nil {
        zap.L().Error("listen failed",
            zap.String("kind", cfg.Transport.Kind),
            zap.String("addr", cfg.Transport.Listen), zap.Error(err))
        return 1
    }
    defer l.Close()

    zap.L().Info("waiting for session",
        zap.String("kind", cfg.Transport.Kind),
        zap.String("addr", cfg.Transport.Listen))
    conn, err := l.Accept(ctx)
    if err != nil {
        zap.L().Error("accept failed", zap.Error(err))
        return 1
    }
    defer conn.Close()
    zap.L().Info("session accepted", zap.Any("peer", conn.RemoteAddr()))

    if err := receive(ctx, conn, cfg, opts); err != nil {
        zap.L().Error("session failed", zap.Error(err))
        return 1
    }
    return 0
}

// receive demultiplexes one session into per-channel files.
func receive(ctx context.Context, conn transport.Conn, cfg *config.Config, opts Options) error {
    src := transport.Source(conn, stream.ReadableOptions{
        HighWaterMark: cfg.Stream.HighWaterMark,
        ReadChunk:     cfg.Stream.ReadChunk,
    })
    defer src.Close()

    d := mux.NewDemux(mux.Options{MaxFrame: cfg.Mux.MaxFrame, Logger: zap.L()})
    sinks := make([]*stream.Writable, 0, opts.Channels)
    for i := 1; i <= opts.Channels; i++ {
        ch := uint8(i)
        path := filepath.Join(opts.OutDir, fmt.Sprintf("channel-%d.dat", ch))
        sink, err := fileSink(path, cfg.Stream, ch)
        if err != nil { return err }
        if err := d.Register(ch, sink); err != nil { return err }
        sinks = append(sinks, sink)
        zap.L().Info("channel mapped", zap.Uint8("channel", ch), zap.String("path", path))
    }

    // A stalled peer must not hold the session open forever.
    var wd *watchdog.Watchdog
    if cfg.Mux.IdleTimeoutMS > 0 {
        idle := time.Duration(cfg.Mux.IdleTimeoutMS) * time.Millisecond
        wd = watchdog.New(idle, func() {
            zap.L().Warn("idle timeout, closing session", zap.Duration("idle", idle))
            _ = conn.Close()
        })
        defer wd.Stop()
    }

    err := d.Run(ctx, touchingSource{src, wd})
    for _, s := range sinks {
        select {
        case <-s.Done():
        case <-time.After(5 * time.Second):
            zap.L().Warn("sink did not settle")
        }
    }
    if err != nil { return err }

    st := d.Stats()
    zap.L().Info("session complete",
        zap.Uint64("frames", st.FramesIn),
        zap.Uint64("bytes", st.BytesIn),
        zap.Uint64("unknown_drops", st.UnknownDrops))
    return nil
}

// touchingSource resets the watchdog whenever frames make progress.
type touchingSource struct {
    stream.Reader
    wd *watchdog.Watchdog
}

func (t touchingSource) Read() (buffer.Chunk, error) {
    c, err := t.Reader.Read()
    if err == nil && t.wd != nil { t.wd.Touch() }
    return c, err
}

// fileSink writes one channel's bytes to a file, closing it at stream end.
func fileSink(path string, sc config.StreamConfig, ch uint8) (*stream.Writable, error) {
    f, err := os.Create(path)
    if err != nil { return nil, err }
    sink := stream.NewWritable(func(c buffer.Chunk) error {
        _, werr := f.Write(c.Data)
        return werr
    }, stream.WritableOptions{
        HighWaterMark: sc.HighWaterMark,
        OnEnd: func() {
            _ = f.Close()
            zap.L().Info("channel complete", zap.Uint8("channel", ch), zap.String("path", path))
        },
    })
    return sink, nil
}
