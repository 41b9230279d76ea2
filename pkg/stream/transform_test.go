package stream

import (
    "bytes"
    "errors"
    "io"
    "testing"

    "flowmux/pkg/buffer"
)

func upper(c buffer.Chunk) (buffer.Chunk, error) {
    return buffer.Bytes(bytes.ToUpper(c.Data)), nil
}

func TestTransformRewritesChunks(t *testing.T) {
    tr := NewTransform(upper, TransformOptions{})
    if _, err := tr.Write(buffer.Bytes([]byte("abc"))); err != nil {
        t.Fatalf("write: %v", err)
    }
    c, err := tr.Read()
    if err != nil { t.Fatalf("read: %v", err) }
    if string(c.Data) != "ABC" { t.Fatalf("got %q, want ABC", c.Data) }

    if _, err := tr.Read(); err != buffer.ErrEmpty {
        t.Fatalf("expected ErrEmpty, got %v", err)
    }
    if err := tr.End(); err != nil { t.Fatalf("end: %v", err) }
    if _, err := tr.Read(); err != io.EOF {
        t.Fatalf("expected io.EOF after end, got %v", err)
    }
}

func TestTransformBackpressureCoupling(t *testing.T) {
    tr := NewTransform(upper, TransformOptions{HighWaterMark: 4})

    // Nobody reads: the writable side saturates at the shared hwm.
    accepted, err := tr.Write(buffer.Bytes([]byte("abcd")))
    if err != nil { t.Fatalf("write: %v", err) }
    if accepted { t.Fatalf("expected saturation with no reader") }
    if _, err := tr.Write(buffer.Bytes([]byte("e"))); err != buffer.ErrFull {
        t.Fatalf("expected ErrFull, got %v", err)
    }

    // A read frees capacity and fires drain.
    if _, err := tr.Read(); err != nil { t.Fatalf("read: %v", err) }
    select {
    case <-tr.Drain():
    default:
        t.Fatalf("drain should fire after the read side catches up")
    }
    if accepted, err := tr.Write(buffer.Bytes([]byte("e"))); err != nil || !accepted {
        t.Fatalf("write after drain: accepted=%v err=%v", accepted, err)
    }
}

func TestTransformError(t *testing.T) {
    boom := errors.New("bad chunk")
    tr := NewTransform(func(buffer.Chunk) (buffer.Chunk, error) {
        return buffer.Chunk{}, boom
    }, TransformOptions{})

    if _, err := tr.Write(buffer.Bytes([]byte("x"))); !errors.Is(err, boom) {
        t.Fatalf("write should surface transform error, got %v", err)
    }
    if _, err := tr.Read(); !errors.Is(err, boom) {
        t.Fatalf("read should surface transform error, got %v", err)
    }
    select {
    case <-tr.Done():
    default:
        t.Fatalf("done should be closed after transform failure")
    }
}
