// Package transport defines the byte-transport interfaces a multiplexed
// session runs over and adapters that expose a conn as stream endpoints.
//
// Key concepts:
//   - Conn: one ordered, reliable, bidirectional byte stream
//   - Transport: dials/listens for Conns of a specific Kind (tcp/quic/mem/pipe)
//   - Source/Sink: wrap a Conn into a flow-controlled stream.Readable or
//     stream.Writable so the mux core never touches sockets directly
//
// Implementations live in subpackages; the transports package builds them
// from configuration.
package transport
