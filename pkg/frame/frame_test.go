package frame

import (
    "bytes"
    "io"
    "testing"

    "flowmux/pkg/buffer"
)

// feedSource replays byte slices, then reports EOF (or starvation first).
type feedSource struct {
    slices  [][]byte
    starved bool // report ErrEmpty once slices run out instead of EOF
}

func (s *feedSource) Read() (buffer.Chunk, error) {
    if len(s.slices) == 0 {
        if s.starved { return buffer.Chunk{}, buffer.ErrEmpty }
        return buffer.Chunk{}, io.EOF
    }
    b := s.slices[0]
    s.slices = s.slices[1:]
    return buffer.Bytes(b), nil
}

func TestEncodeLayout(t *testing.T) {
    got := Encode(2, []byte("ABC"))
    want := []byte{0x02, 0x00, 0x00, 0x00, 0x03, 0x41, 0x42, 0x43}
    if !bytes.Equal(got, want) {
        t.Fatalf("encode = %x, want %x", got, want)
    }
}

func TestDecodeSingleFrame(t *testing.T) {
    src := &feedSource{slices: [][]byte{{0x02, 0x00, 0x00, 0x00, 0x03, 0x41, 0x42, 0x43}}}
    d := NewDecoder(0)
    f, err := d.Next(src)
    if err != nil { t.Fatalf("next: %v", err) }
    if f.Channel != 2 || string(f.Payload) != "ABC" {
        t.Fatalf("frame = %v payload=%q", f, f.Payload)
    }
    if _, err := d.Next(src); err != io.EOF {
        t.Fatalf("expected io.EOF on clean boundary, got %v", err)
    }
}

func TestRoundTripAllChannels(t *testing.T) {
    payloads := [][]byte{nil, []byte("x"), bytes.Repeat([]byte("chunk"), 100)}
    for ch := 0; ch <= 255; ch += 5 {
        for _, p := range payloads {
            src := &feedSource{slices: [][]byte{Encode(uint8(ch), p)}}
            f, err := NewDecoder(0).Next(src)
            if err != nil { t.Fatalf("ch=%d: %v", ch, err) }
            if f.Channel != uint8(ch) || !bytes.Equal(f.Payload, p) {
                t.Fatalf("ch=%d round trip mismatch", ch)
            }
            if (len(p) == 0) != f.End() {
                t.Fatalf("ch=%d End()=%v for len %d", ch, f.End(), len(p))
            }
        }
    }
}

func TestDecodeByteDribble(t *testing.T) {
    // One byte at a time across the header boundary; the decoder must keep
    // its partial position between calls.
    enc := Encode(7, []byte("hello"))
    var slices [][]byte
    for _, b := range enc { slices = append(slices, []byte{b}) }
    src := &feedSource{slices: slices}
    d := NewDecoder(0)
    f, err := d.Next(src)
    if err != nil { t.Fatalf("next: %v", err) }
    if f.Channel != 7 || string(f.Payload) != "hello" {
        t.Fatalf("dribble decode: %v %q", f, f.Payload)
    }
}

func TestDecodeStarvationMidFrame(t *testing.T) {
    enc := Encode(1, []byte("late"))
    src := &feedSource{slices: [][]byte{enc[:3]}, starved: true}
    d := NewDecoder(0)
    if _, err := d.Next(src); err != buffer.ErrEmpty {
        t.Fatalf("expected ErrEmpty while starved, got %v", err)
    }
    // Remaining bytes arrive; the same decoder finishes the frame.
    src.slices = [][]byte{enc[3:]}
    f, err := d.Next(src)
    if err != nil { t.Fatalf("resume: %v", err) }
    if f.Channel != 1 || string(f.Payload) != "late" {
        t.Fatalf("resumed frame: %v %q", f, f.Payload)
    }
}

func TestDecodeInterleavedFrames(t *testing.T) {
    var wire []byte
    wire = Append(wire, 0, []byte("a0"))
    wire = Append(wire, 1, []byte("b0"))
    wire = Append(wire, 0, []byte("a1"))
    src := &feedSource{slices: [][]byte{wire}}
    d := NewDecoder(0)

    want := []struct {
        ch uint8
        p  string
    }{{0, "a0"}, {1, "b0"}, {0, "a1"}}
    for _, w := range want {
        f, err := d.Next(src)
        if err != nil { t.Fatalf("next: %v", err) }
        if f.Channel != w.ch || string(f.Payload) != w.p {
            t.Fatalf("got ch=%d %q, want ch=%d %q", f.Channel, f.Payload, w.ch, w.p)
        }
    }
}

func TestDecodeTooLarge(t *testing.T) {
    src := &feedSource{slices: [][]byte{{0x01, 0xFF, 0xFF, 0xFF, 0xFF}}}
    if _, err := NewDecoder(1024).Next(src); err != ErrTooLarge {
        t.Fatalf("expected ErrTooLarge, got %v", err)
    }
}

func TestDecodeTruncatedFrame(t *testing.T) {
    enc := Encode(3, []byte("cut"))
    src := &feedSource{slices: [][]byte{enc[:4]}}
    if _, err := NewDecoder(0).Next(src); err != io.ErrUnexpectedEOF {
        t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
    }
}
