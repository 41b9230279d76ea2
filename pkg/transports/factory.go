// Package transports maps configured transport kinds to implementations.
package transports

import (
    "fmt"

    "flowmux/pkg/transport"
    "flowmux/pkg/transport/mem"
    "flowmux/pkg/transport/quic"
    "flowmux/pkg/transport/tcp"
)

// New builds a transport by kind name as used in configuration.
func New(kind string) (transport.Transport, error) {
    switch kind {
    case "tcp":
        return tcp.New(), nil
    case "quic":
        return quic.New()
    case "mem":
        return mem.New(), nil
    case "pipe", "winpipe":
        return newWinPipeTransport()
    default:
        return nil, fmt.Errorf("transports: unknown kind %q", kind)
    }
}
