// Package codec serializes application values for transport. Each codec
// is identified both by a MIME content type and by a compact one-byte
// Format carried as the first byte of an encoded value, so a receiver can
// pick the right decoder without out-of-band negotiation.
package codec

import "fmt"

// Format identifies a payload encoding with a single on-wire byte.
type Format uint8

const (
    FormatUnknown Format = iota
    FormatJSON
    FormatCBOR
    FormatProto
)

const (
    ContentUnknown = "application/octet-stream"
    ContentJSON    = "application/json"
    ContentCBOR    = "application/cbor"
    ContentProto   = "application/x-protobuf"
)

func (f Format) String() string {
    switch f {
    case FormatJSON:
        return ContentJSON
    case FormatCBOR:
        return ContentCBOR
    case FormatProto:
        return ContentProto
    default:
        return ContentUnknown
    }
}

// Codec marshals typed values. Implementations must be deterministic so
// both ends of a session agree on byte-level encoding.
type Codec interface {
    Format() Format
    ContentType() string
    Marshal(v any) ([]byte, error)
    Unmarshal(data []byte, v any) error
}

// Registry maps formats to codecs.
type Registry struct { byFormat map[Format]Codec }

// NewRegistry constructs a registry preloaded with the codecs that need
// no initialization: JSON and Protobuf. CBOR has a constructor error path
// and is added explicitly via Register.
func NewRegistry() *Registry {
    r := &Registry{byFormat: make(map[Format]Codec)}
    r.Register(JSON())
    r.Register(Proto())
    return r
}

// Register adds a codec, replacing any previous one for its format.
func (r *Registry) Register(c Codec) { r.byFormat[c.Format()] = c }

// Get returns the codec for a format, or nil.
func (r *Registry) Get(f Format) Codec { return r.byFormat[f] }

// EncodeValue marshals v with the codec for f and prefixes the single
// format byte.
func (r *Registry) EncodeValue(f Format, v any) ([]byte, error) {
    c := r.Get(f)
    if c == nil { return nil, fmt.Errorf("codec: unregistered format %d", f) }
    b, err := c.Marshal(v)
    if err != nil { return nil, err }
    out := make([]byte, 1+len(b))
    out[0] = byte(f)
    copy(out[1:], b)
    return out, nil
}

// DecodeValue decodes a payload produced by EncodeValue into v and
// reports which format carried it.
func (r *Registry) DecodeValue(payload []byte, v any) (Format, error) {
    if len(payload) == 0 {
        return FormatUnknown, fmt.Errorf("codec: empty payload")
    }
    f := Format(payload[0])
    c := r.Get(f)
    if c == nil { return f, fmt.Errorf("codec: unregistered format %d", f) }
    if err := c.Unmarshal(payload[1:], v); err != nil { return f, err }
    return f, nil
}
