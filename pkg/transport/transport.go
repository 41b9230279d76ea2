package transport

import (
    "context"
    "io"
    "net"
)

// Kind identifies the link type carrying a multiplexed session.
type Kind int

const (
    KindUnknown Kind = iota
    KindTCP
    KindQUIC
    KindMem
    KindPipe
)

func (k Kind) String() string {
    switch k {
    case KindTCP:
        return "tcp"
    case KindQUIC:
        return "quic"
    case KindMem:
        return "mem"
    case KindPipe:
        return "pipe"
    default:
        return "unknown"
    }
}

// Conn is one ordered, reliable, bidirectional byte stream. The mux core
// treats it as just another readable/writable pair; see Source and Sink.
type Conn interface {
    io.Reader
    io.Writer
    Close() error
    LocalAddr() net.Addr
    RemoteAddr() net.Addr
}

// Listener accepts inbound conns.
type Listener interface {
    // Accept blocks until an inbound conn is available or ctx is done.
    Accept(ctx context.Context) (Conn, error)
    Addr() net.Addr
    Close() error
}

// Transport dials and listens for conns of a specific link kind.
type Transport interface {
    Kind() Kind
    Listen(ctx context.Context, address string) (Listener, error)
    Dial(ctx context.Context, address string) (Conn, error)
}
