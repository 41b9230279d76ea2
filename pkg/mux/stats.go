package mux

import "sync/atomic"

// counters aggregates session metrics on atomics so snapshots never block
// the data path.
type counters struct {
    framesOut    atomic.Uint64
    framesIn     atomic.Uint64
    bytesOut     atomic.Uint64
    bytesIn      atomic.Uint64
    fragments    atomic.Uint64
    unknownDrops atomic.Uint64
}

// Stats is a point-in-time snapshot of session metrics.
type Stats struct {
    FramesOut    uint64
    FramesIn     uint64
    BytesOut     uint64
    BytesIn      uint64
    Fragments    uint64
    UnknownDrops uint64
}

func (c *counters) snapshot() Stats {
    return Stats{
        FramesOut:    c.framesOut.Load(),
        FramesIn:     c.framesIn.Load(),
        BytesOut:     c.bytesOut.Load(),
        BytesIn:      c.bytesIn.Load(),
        Fragments:    c.fragments.Load(),
        UnknownDrops: c.unknownDrops.Load(),
    }
}
