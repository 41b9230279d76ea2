package codec

import (
    "fmt"

    "flowmux/pkg/buffer"
    "flowmux/pkg/stream"
)

// MarshalStage returns a transform function that turns object-mode chunks
// into format-prefixed byte chunks ready for the wire. Byte chunks pass
// through untouched.
func MarshalStage(r *Registry, f Format) stream.TransformFunc {
    return func(c buffer.Chunk) (buffer.Chunk, error) {
        if c.Obj == nil { return c, nil }
        b, err := r.EncodeValue(f, c.Obj)
        if err != nil { return buffer.Chunk{}, err }
        return buffer.Bytes(b), nil
    }
}

// UnmarshalStage returns a transform function that decodes format-prefixed
// byte chunks into object-mode chunks. newValue allocates the decode
// target for each chunk.
func UnmarshalStage(r *Registry, newValue func() any) stream.TransformFunc {
    return func(c buffer.Chunk) (buffer.Chunk, error) {
        if c.Obj != nil {
            return buffer.Chunk{}, fmt.Errorf("codec: chunk already decoded")
        }
        v := newValue()
        if _, err := r.DecodeValue(c.Data, v); err != nil {
            return buffer.Chunk{}, err
        }
        return buffer.Object(v), nil
    }
}
