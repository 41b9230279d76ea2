//go:build windows

package transports

import (
    "flowmux/pkg/transport"
    "flowmux/pkg/transport/winpipe"
)

func newWinPipeTransport() (transport.Transport, error) { return winpipe.New(), nil }
