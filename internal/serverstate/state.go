package serverstate

import (
	"sync/atomic"
)

// Lifecycle states reported on the /state endpoint.
const (
	StateStarting = "starting"
	StateReady    = "ready"
	StateDraining = "draining"
)

var state atomic.Value
var draining atomic.Bool

func init() {
	state.Store(StateStarting)
}

// SetState sets the server state string.
func SetState(s string) {
	state.Store(s)
}

// GetState returns the current server state.
func GetState() string {
	if v, ok := state.Load().(string); ok {
		return v
	}
	return "unknown"
}

// StartDrain marks the server as draining. New websocket connections are
// refused while draining; established connections keep running.
func StartDrain() {
	draining.Store(true)
	SetState(StateDraining)
}

// IsDraining reports whether the server is draining.
func IsDraining() bool {
	return draining.Load()
}
