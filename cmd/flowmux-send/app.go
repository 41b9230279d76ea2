package main

import (
    "context"
    "fmt"
    "os"
    "os/signal"
    "syscall"

    "go.uber.org/zap"
    "golang.org/x/sync/errgroup"

    "flowmux/pkg/buffer"
    "flowmux/pkg/codec"
    "flowmux/pkg/config"
    "flowmux/pkg/mux"
    "flowmux/pkg/observability"
    "flowmux/pkg/stream"
    "flowmux/pkg/transports"
)

// Object-mode chunks count as one unit each against the high-water mark,
// so their buffers are sized in chunks rather than bytes.
const objectHWM = 32

// run is the main entry point after CLI parsing.
func run(opts Options) int {
    cfg, err := config.Load(opts.ConfigPath)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
        return 1
    }
    if opts.Dial != "" { cfg.Transport.Dial = opts.Dial }
    if opts.Kind != "" { cfg.Transport.Kind = opts.Kind }
    if opts.Rate > 0 { cfg.Mux.RateBytesPerSec = opts.Rate }

    logger, err := observability.SetupLogger(cfg.Log)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
        return 1
    }
    defer func() { _ = logger.Sync() }()

    if len(opts.Files) == 0 {
        zap.L().Error("no input files given")
        return 1
    }
    if len(opts.Files) > 255 {
        zap.L().Error("too many inputs for one session", zap.Int("files", len(opts.Files)))
        return 1
    }
    if cfg.Transport.Dial == "" {
        zap.L().Error("no dial address configured")
        return 1
    }

    var enc *encoder
    if opts.Encode != "" {
        enc, err = newEncoder(opts.Encode)
        if err != nil {
            zap.L().Error("bad encoding", zap.Error(err))
            return 1
        }
    }

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    tr, err := transports.New(cfg.Transport.Kind)
    if err != nil {
        zap.L().Error("transport init failed", zap.Error(err))
        return 1
    }
    conn, err := tr.Dial(ctx, cfg.Transport.Dial)
    if err != nil {
        zap.L().Error("dial failed",
            zap.String("kind", cfg.Transport.Kind),
            zap.String("addr", cfg.Transport.Dial), zap.Error(err))
        return 1
    }

    m := mux.New(conn, mux.Options{
        MaxFrame: cfg.Mux.MaxFrame,
        Rate:     cfg.Mux.RateBytesPerSec,
        Logger:   zap.L(),
    })
    g, gctx := errgroup.WithContext(ctx)
    for i, path := range opts.Files {
        ch := uint8(i + 1)
        src, err := channelSource(g, gctx, path, cfg.Stream, enc)
        if err != nil {
            zap.L().Error("open input failed", zap.String("path", path), zap.Error(err))
            return 1
        }
        if err := m.Add(ch, src); err != nil {
            zap.L().Error("register channel failed", zap.Uint8("channel", ch), zap.Error(err))
            return 1
        }
        zap.L().Info("channel mapped", zap.Uint8("channel", ch), zap.String("path", path))
    }

    zap.L().Info("sending",
        zap.String("kind", cfg.Transport.Kind),
        zap.String("addr", cfg.Transport.Dial),
        zap.String("encoding", opts.Encode),
        zap.Int("channels", len(opts.Files)))
    g.Go(func() error { return m.Run(gctx) })
    if err := g.Wait(); err != nil {
        zap.L().Error("session failed", zap.Error(err))
        return 1
    }

    st := m.Stats()
    zap.L().Info("session complete",
        zap.Uint64("frames", st.FramesOut),
        zap.Uint64("bytes", st.BytesOut),
        zap.Uint64("fragments", st.Fragments))
    return 0
}

// encoder selects the value codec applied ahead of the mux.
type encoder struct {
    reg    *codec.Registry
    format codec.Format
}

func newEncoder(name string) (*encoder, error) {
    reg := codec.NewRegistry()
    switch name {
    case "json":
        return &encoder{reg: reg, format: codec.FormatJSON}, nil
    case "cbor":
        c, err := codec.CBOR()
        if err != nil { return nil, err }
        reg.Register(c)
        return &encoder{reg: reg, format: codec.FormatCBOR}, nil
    default:
        return nil, fmt.Errorf("unknown encoding %q (want json or cbor)", name)
    }
}

// channelSource opens path as a flow-controlled readable. With an encoder
// set, file chunks travel as object-mode values through a marshal stage,
// so the wire carries format-prefixed payloads instead of raw bytes. The
// stage's pipe runs on g and unwinds with the session.
func channelSource(g *errgroup.Group, ctx context.Context, path string, sc config.StreamConfig, enc *encoder) (stream.Reader, error) {
    src, err := fileSource(path, sc, enc != nil)
    if err != nil { return nil, err }
    if enc == nil { return src, nil }

    tr := stream.NewTransform(codec.MarshalStage(enc.reg, enc.format),
        stream.TransformOptions{HighWaterMark: sc.HighWaterMark})
    g.Go(func() error { return stream.Pipe(ctx, src, tr) })
    return tr, nil
}

// fileSource exposes one file as a readable. The file is closed when the
// producer reaches its end or fails. In object mode each chunk is handed
// over as an opaque value for a downstream marshal stage.
func fileSource(path string, sc config.StreamConfig, objectMode bool) (stream.Reader, error) {
    f, err := os.Open(path)
    if err != nil { return nil, err }
    hwm := sc.HighWaterMark
    if objectMode { hwm = objectHWM }
    return stream.NewReadable(func(requested int) (buffer.Chunk, error) {
        b := make([]byte, requested)
        for {
            n, rerr := f.Read(b)
            if n > 0 {
                if objectMode { return buffer.Object(b[:n]), nil }
                return buffer.Bytes(b[:n]), nil
            }
            if rerr != nil {
                _ = f.Close()
                return buffer.Chunk{}, rerr
            }
        }
    }, stream.ReadableOptions{
        HighWaterMark: hwm,
        ReadChunk:     sc.ReadChunk,
    }), nil
}
