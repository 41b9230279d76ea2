// Package stream provides flow-controlled stream endpoints over the bounded
// chunk buffer:
//
//   - Readable: pull-based source fed by a producer callback, throttled by
//     the buffer's high-water mark
//   - Writable: sink draining into a consumer callback, reporting saturation
//     to the writer and signaling drain when capacity frees up
//   - Transform: a writable chained to an internal readable with coupled
//     backpressure
//   - Pipe: the coordinator moving chunks from a Reader to a Writer while
//     honoring drain signals and propagating end-of-stream and errors
//
// All endpoint operations are non-blocking: missing data or capacity is
// reported through sentinel errors (buffer.ErrEmpty, buffer.ErrFull) and a
// later channel signal, never by parking the caller.
package stream
