package transport

import (
    "flowmux/pkg/buffer"
    "flowmux/pkg/stream"
)

// Source exposes the read half of a conn as a flow-controlled Readable.
// The producer performs blocking reads of up to ReadChunk bytes; the
// readable's high-water mark caps how far it runs ahead of the consumer.
func Source(c Conn, opts stream.ReadableOptions) *stream.Readable {
    var lastErr error
    return stream.NewReadable(func(requested int) (buffer.Chunk, error) {
        if lastErr != nil { return buffer.Chunk{}, lastErr }
        b := make([]byte, requested)
        for {
            n, err := c.Read(b)
            if n > 0 {
                if err != nil { lastErr = err } // surface after the data
                return buffer.Bytes(b[:n]), nil
            }
            if err != nil { return buffer.Chunk{}, err }
        }
    }, opts)
}

// Sink exposes the write half of a conn as a Writable.
func Sink(c Conn, opts stream.WritableOptions) *stream.Writable {
    return stream.NewWritable(func(ch buffer.Chunk) error {
        if len(ch.Data) == 0 { return nil }
        _, err := c.Write(ch.Data)
        return err
    }, opts)
}
