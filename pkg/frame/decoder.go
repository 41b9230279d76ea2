package frame

import (
    "io"

    "flowmux/pkg/buffer"
)

// Source supplies the decoder with byte chunks. stream.Reader satisfies it.
// Read must not block: buffer.ErrEmpty means no bytes right now, io.EOF
// means the transport ended.
type Source interface {
    Read() (buffer.Chunk, error)
}

type decodeState int

const (
    awaitChannel decodeState = iota
    awaitLength
    awaitPayload
)

// Decoder is a pull-based three-state frame parser. It consumes exactly
// the bytes each state needs and keeps the partial position across calls,
// so a frame may arrive in arbitrarily small slices. Fields are never
// interpreted before all of their bytes are present, and the next frame is
// not entered until the current payload completes.
type Decoder struct {
    max     int
    state   decodeState
    pending []byte // unconsumed tail of the last chunk

    channel byte
    lenbuf  [4]byte
    lenN    int
    payload []byte
    payN    int
}

// NewDecoder creates a decoder with the given payload cap; maxPayload <= 0
// selects DefaultMaxPayload.
func NewDecoder(maxPayload int) *Decoder {
    if maxPayload <= 0 { maxPayload = DefaultMaxPayload }
    return &Decoder{max: maxPayload}
}

// Next pulls from src until one full frame is decoded. buffer.ErrEmpty
// propagates when src is starved mid-frame (call again later; the partial
// position is retained). io.EOF propagates on a clean boundary;
// io.ErrUnexpectedEOF reports a transport end inside a frame.
func (d *Decoder) Next(src Source) (Frame, error) {
    for {
        if len(d.pending) == 0 {
            c, err := src.Read()
            switch err {
            case nil:
                d.pending = c.Data
                continue
            case buffer.ErrEmpty:
                return Frame{}, buffer.ErrEmpty
            case io.EOF:
                if d.state != awaitChannel {
                    return Frame{}, io.ErrUnexpectedEOF
                }
                return Frame{}, io.EOF
            default:
                return Frame{}, err
            }
        }

        switch d.state {
        case awaitChannel:
            d.channel = d.pending[0]
            d.pending = d.pending[1:]
            d.state = awaitLength

        case awaitLength:
            n := copy(d.lenbuf[d.lenN:], d.pending)
            d.lenN += n
            d.pending = d.pending[n:]
            if d.lenN < 4 { continue }
            length := int(uint32(d.lenbuf[0])<<24 | uint32(d.lenbuf[1])<<16 | uint32(d.lenbuf[2])<<8 | uint32(d.lenbuf[3]))
            if length > d.max {
                return Frame{}, ErrTooLarge
            }
            if length == 0 {
                f := Frame{Channel: d.channel}
                d.reset()
                return f, nil
            }
            d.payload = make([]byte, length)
            d.payN = 0
            d.state = awaitPayload

        case awaitPayload:
            n := copy(d.payload[d.payN:], d.pending)
            d.payN += n
            d.pending = d.pending[n:]
            if d.payN < len(d.payload) { continue }
            f := Frame{Channel: d.channel, Payload: d.payload}
            d.reset()
            return f, nil
        }
    }
}

func (d *Decoder) reset() {
    d.state = awaitChannel
    d.lenN = 0
    d.payload = nil
    d.payN = 0
}

// Buffered reports how many fed bytes await parsing.
func (d *Decoder) Buffered() int { return len(d.pending) }
