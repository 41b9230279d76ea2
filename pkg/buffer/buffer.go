// Package buffer implements the bounded FIFO chunk queue that backs every
// readable and writable stream endpoint. The capacity is a soft high-water
// mark: one enqueue may overflow it, the next one is refused until a dequeue
// drains the fill level back under capacity.
package buffer

import (
    "errors"
    "io"
)

var (
    // ErrClosed is returned for operations on an ended or discarded buffer.
    ErrClosed = errors.New("buffer: closed")
    // ErrEmpty is returned by Dequeue when nothing is queued yet.
    ErrEmpty = errors.New("buffer: empty")
    // ErrFull is returned by Enqueue when the previous enqueue already
    // crossed the high-water mark and no dequeue happened since.
    ErrFull = errors.New("buffer: full")
)

// Chunk is one unit of queued data. Data carries the bytes; Obj is set
// instead for object-mode streams, where a chunk always counts as size 1.
type Chunk struct {
    Data []byte
    Obj  any
}

// Bytes wraps b into a chunk.
func Bytes(b []byte) Chunk { return Chunk{Data: b} }

// Object wraps an opaque value into an object-mode chunk.
func Object(v any) Chunk { return Chunk{Obj: v} }

// Size reports the chunk's contribution to the buffer fill level.
func (c Chunk) Size() int {
    if c.Obj != nil { return 1 }
    return len(c.Data)
}

// Buffer is a single-writer/single-reader bounded chunk queue. It provides
// no internal locking; concurrent producers need an external serialization
// layer.
type Buffer struct {
    capacity  int
    filled    int
    q         []Chunk
    ended     bool
    discarded bool
}

// New creates a buffer with the given high-water mark. Capacity below one
// is clamped to one so a buffer can always hold at least something.
func New(capacity int) *Buffer {
    if capacity < 1 { capacity = 1 }
    return &Buffer{capacity: capacity}
}

// Enqueue appends c and reports whether the caller may keep producing.
// false with a nil error means the chunk was stored but the buffer is now
// at or over capacity. ErrFull means the chunk was refused outright because
// the buffer was already full before the call.
func (b *Buffer) Enqueue(c Chunk) (bool, error) {
    if b.discarded || b.ended { return false, ErrClosed }
    if b.filled >= b.capacity { return false, ErrFull }
    b.q = append(b.q, c)
    b.filled += c.Size()
    return b.filled < b.capacity, nil
}

// Dequeue pops the oldest chunk. ErrEmpty means nothing is queued yet;
// io.EOF means the buffer ended and drained completely.
func (b *Buffer) Dequeue() (Chunk, error) {
    if b.discarded { return Chunk{}, ErrClosed }
    if len(b.q) == 0 {
        if b.ended { return Chunk{}, io.EOF }
        return Chunk{}, ErrEmpty
    }
    c := b.q[0]
    b.q[0] = Chunk{}
    b.q = b.q[1:]
    b.filled -= c.Size()
    if len(b.q) == 0 { b.q = nil }
    return c, nil
}

// MarkEnded flags that no further chunks will arrive. Idempotent.
func (b *Buffer) MarkEnded() { b.ended = true }

// Discard releases all queued chunks and makes every later operation fail
// with ErrClosed. Used on abort paths.
func (b *Buffer) Discard() {
    b.q = nil
    b.filled = 0
    b.discarded = true
}

// Full reports whether the fill level reached the high-water mark.
func (b *Buffer) Full() bool { return b.filled >= b.capacity }

// Ended reports whether MarkEnded was called.
func (b *Buffer) Ended() bool { return b.ended }

// Len returns the number of queued chunks.
func (b *Buffer) Len() int { return len(b.q) }

// Filled returns the summed size of queued chunks.
func (b *Buffer) Filled() int { return b.filled }

// Capacity returns the high-water mark.
func (b *Buffer) Capacity() int { return b.capacity }
