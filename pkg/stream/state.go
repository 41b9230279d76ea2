package stream

// State tracks the lifecycle of one stream endpoint.
type State int32

const (
    StateIdle State = iota
    StateFlowing
    StatePaused
    StateEnded
    StateErrored
)

func (s State) String() string {
    switch s {
    case StateIdle:
        return "idle"
    case StateFlowing:
        return "flowing"
    case StatePaused:
        return "paused"
    case StateEnded:
        return "ended"
    case StateErrored:
        return "errored"
    default:
        return "unknown"
    }
}

// notify performs a non-blocking signal on a capacity-1 channel.
func notify(ch chan struct{}) {
    select { case ch <- struct{}{}: default: }
}
