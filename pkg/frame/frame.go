// Package frame implements the channel-multiplexing wire format:
//
//  +------------+--------+----------+
//  | CHANNEL_ID | LENGTH | PAYLOAD  |
//  +------------+--------+----------+
//  |     1      | 4 (BE) | Var(LEN) |
//  +------------+--------+----------+
//
// No magic, no version, no checksum; integrity is the transport's job.
// A zero-length frame marks end-of-stream for its channel.
package frame

import (
    "encoding/binary"
    "errors"
    "fmt"
)

const (
    // HeaderSize is the fixed prefix before the payload.
    HeaderSize = 5
    // DefaultMaxPayload bounds a single frame's payload. A length field
    // above the configured maximum is a framing error terminal for the
    // whole transport, since byte alignment can no longer be trusted.
    DefaultMaxPayload = 1 << 24
)

// ErrTooLarge reports a length field exceeding the decoder's maximum.
var ErrTooLarge = errors.New("frame: payload exceeds maximum")

// Frame is one self-delimited unit on the multiplexed wire.
type Frame struct {
    Channel uint8
    Payload []byte
}

// End reports whether the frame is a channel end-of-stream marker.
func (f Frame) End() bool { return len(f.Payload) == 0 }

// Append encodes a frame onto dst and returns the extended slice.
func Append(dst []byte, channel uint8, payload []byte) []byte {
    var hdr [HeaderSize]byte
    hdr[0] = channel
    binary.BigEndian.PutUint32(hdr[1:5], uint32(len(payload)))
    dst = append(dst, hdr[:]...)
    return append(dst, payload...)
}

// Encode returns header+payload as a fresh byte slice.
func Encode(channel uint8, payload []byte) []byte {
    return Append(make([]byte, 0, HeaderSize+len(payload)), channel, payload)
}

// EncodeEnd returns the end-of-stream marker frame for a channel.
func EncodeEnd(channel uint8) []byte { return Encode(channel, nil) }

func (f Frame) String() string {
    return fmt.Sprintf("frame{ch=%d len=%d}", f.Channel, len(f.Payload))
}
