// Package mux serializes N independent readable sources onto one outbound
// byte conn as tagged frames, and reconstructs them on the inbound side by
// routing decoded frames to per-channel writable sinks.
//
// A channel id is stable for the lifetime of one logical stream and unique
// among concurrently open streams on a session. Cross-channel ordering on
// the wire is unspecified; within a channel, payload order is preserved.
// The shared conn is closed only after every source signaled end-of-stream.
package mux
