//go:build !windows

package transports

import (
    "fmt"

    "flowmux/pkg/transport"
)

func newWinPipeTransport() (transport.Transport, error) {
    return nil, fmt.Errorf("transports: winpipe is not supported on this platform")
}
