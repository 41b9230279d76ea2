package stream

import (
    "context"
    "io"

    "golang.org/x/sync/errgroup"

    "flowmux/pkg/buffer"
)

// Pipe moves chunks from src to dst until the source ends. Writes that
// report saturation suspend further reads until the sink's drain signal
// fires. On a clean end the sink is ended and awaited; on any error the
// pipe aborts both endpoints and returns the cause (fail-fast, no retry of
// chunks already accepted).
func Pipe(ctx context.Context, src Reader, dst Writer) error {
    fail := func(err error) error {
        _ = src.Close()
        _ = dst.Close()
        return err
    }
    for {
        if err := ctx.Err(); err != nil { return fail(err) }

        c, err := src.Read()
        switch err {
        case nil:
            if err := Push(ctx, dst, c); err != nil {
                _ = src.Close()
                return err
            }
        case buffer.ErrEmpty:
            select {
            case <-src.Ready():
            case <-dst.Done():
                if derr := dst.Err(); derr != nil { return fail(derr) }
                return fail(buffer.ErrClosed)
            case <-ctx.Done():
                return fail(ctx.Err())
            }
        case io.EOF:
            if eerr := dst.End(); eerr != nil { return fail(eerr) }
            select {
            case <-dst.Done():
                return dst.Err()
            case <-ctx.Done():
                return fail(ctx.Err())
            }
        default:
            _ = dst.Close()
            return err
        }
    }
}

// Push writes one chunk to dst, waiting out saturation between attempts.
// It is the single-chunk building block of Pipe, exported for components
// that route chunks themselves (the demultiplexer in particular).
func Push(ctx context.Context, dst Writer, c buffer.Chunk) error {
    for {
        accepted, err := dst.Write(c)
        if err == buffer.ErrFull {
            // refused outright: wait for drain and retry the same chunk
            if werr := waitDrain(ctx, dst); werr != nil { return werr }
            continue
        }
        if err != nil { return err }
        if accepted { return nil }
        // Stored but saturated: pause reads until the sink drains.
        return waitDrain(ctx, dst)
    }
}

func waitDrain(ctx context.Context, dst Writer) error {
    select {
    case <-dst.Drain():
        return nil
    case <-dst.Done():
        if err := dst.Err(); err != nil { return err }
        return buffer.ErrClosed
    case <-ctx.Done():
        _ = dst.Close()
        return ctx.Err()
    }
}

// PipeThrough chains src through one or more transform stages into dst,
// running one pipe per hop and returning the first error.
func PipeThrough(ctx context.Context, src Reader, dst Writer, stages ...*Transform) error {
    if len(stages) == 0 { return Pipe(ctx, src, dst) }
    g, ctx := errgroup.WithContext(ctx)
    var prev Reader = src
    for _, st := range stages {
        from, to := prev, st
        g.Go(func() error { return Pipe(ctx, from, to) })
        prev = st
    }
    last := prev
    g.Go(func() error { return Pipe(ctx, last, dst) })
    return g.Wait()
}
