package stream

import (
    "bytes"
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "flowmux/pkg/buffer"
)

// collectSink gathers consumed chunks behind a mutex.
type collectSink struct {
    mu  sync.Mutex
    out [][]byte
}

func (s *collectSink) consume(c buffer.Chunk) error {
    s.mu.Lock()
    s.out = append(s.out, append([]byte(nil), c.Data...))
    s.mu.Unlock()
    return nil
}

func (s *collectSink) joined() []byte {
    s.mu.Lock()
    defer s.mu.Unlock()
    return bytes.Join(s.out, nil)
}

func TestPipeEndToEnd(t *testing.T) {
    src := NewReadable(sliceProducer([]string{"hello ", "flow", "mux"}, nil), ReadableOptions{})
    sink := &collectSink{}
    dst := NewWritable(sink.consume, WritableOptions{})

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := Pipe(ctx, src, dst); err != nil { t.Fatalf("pipe: %v", err) }
    if got := string(sink.joined()); got != "hello flowmux" {
        t.Fatalf("got %q", got)
    }
}

func TestPipeSlowConsumer(t *testing.T) {
    // 64 chunks of 8 bytes through a 16-byte sink buffer with a slow
    // consumer: backpressure must keep everything ordered and complete.
    var chunks []string
    for i := 0; i < 64; i++ {
        chunks = append(chunks, string([]byte{byte('a' + i%26), '0' + byte(i%10), '-', '-', '-', '-', '-', '.'}))
    }
    src := NewReadable(sliceProducer(chunks, nil), ReadableOptions{HighWaterMark: 32})
    sink := &collectSink{}
    dst := NewWritable(func(c buffer.Chunk) error {
        time.Sleep(time.Millisecond)
        return sink.consume(c)
    }, WritableOptions{HighWaterMark: 16})

    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := Pipe(ctx, src, dst); err != nil { t.Fatalf("pipe: %v", err) }

    want := bytes.Join(func() [][]byte {
        var b [][]byte
        for _, s := range chunks { b = append(b, []byte(s)) }
        return b
    }(), nil)
    if !bytes.Equal(sink.joined(), want) {
        t.Fatalf("reassembled output differs (len %d vs %d)", len(sink.joined()), len(want))
    }
}

func TestPipeSourceErrorAborts(t *testing.T) {
    boom := errors.New("upstream gone")
    n := 0
    p := func(_ int) (buffer.Chunk, error) {
        n++
        if n > 2 { return buffer.Chunk{}, boom }
        return buffer.Bytes([]byte("x")), nil
    }
    src := NewReadable(p, ReadableOptions{HighWaterMark: 1})
    dst := NewWritable(func(buffer.Chunk) error { return nil }, WritableOptions{})

    err := Pipe(context.Background(), src, dst)
    if !errors.Is(err, boom) { t.Fatalf("pipe error = %v, want upstream error", err) }
    if _, werr := dst.Write(buffer.Bytes([]byte("y"))); werr == nil {
        t.Fatalf("sink should be closed after pipe abort")
    }
}

func TestPipeThroughTransforms(t *testing.T) {
    src := NewReadable(sliceProducer([]string{"ab", "cd"}, nil), ReadableOptions{})
    sink := &collectSink{}
    dst := NewWritable(sink.consume, WritableOptions{})
    up := NewTransform(upper, TransformOptions{})

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := PipeThrough(ctx, src, dst, up); err != nil { t.Fatalf("pipe through: %v", err) }
    if got := string(sink.joined()); got != "ABCD" { t.Fatalf("got %q", got) }
}

func TestPipeContextCancel(t *testing.T) {
    // Producer never ends; cancellation must unwind the pipe.
    p := func(_ int) (buffer.Chunk, error) { return buffer.Bytes([]byte("spin")), nil }
    src := NewReadable(p, ReadableOptions{HighWaterMark: 8})
    block := make(chan struct{})
    dst := NewWritable(func(buffer.Chunk) error { <-block; return nil }, WritableOptions{HighWaterMark: 4})

    ctx, cancel := context.WithCancel(context.Background())
    errCh := make(chan error, 1)
    go func() { errCh <- Pipe(ctx, src, dst) }()
    time.Sleep(50 * time.Millisecond)
    cancel()
    select {
    case err := <-errCh:
        if !errors.Is(err, context.Canceled) { t.Fatalf("err=%v, want context.Canceled", err) }
    case <-time.After(2 * time.Second):
        t.Fatalf("pipe did not unwind on cancel")
    }
    close(block)
}
