package mcptools

import (
	"log/slog"

	"github.com/robbyt/go-fsm"
)

// Server lifecycle states reported by Result.States.
const (
	StateAcquiring   = "acquiring"
	StateReady       = "ready"
	StateFailed      = "failed"
	StateTearingDown = "tearing_down"
	StateClosed      = "closed"
	StateError       = "error"
)

// lifecycleTransitions: a ready server is torn down once; a failed server has
// already released what it acquired and stays failed.
var lifecycleTransitions = map[string][]string{
	StateAcquiring:   {StateReady, StateFailed},
	StateReady:       {StateTearingDown},
	StateFailed:      {},
	StateTearingDown: {StateClosed, StateError},
	StateClosed:      {},
	StateError:       {},
}

func newLifecycle(handler slog.Handler) (*fsm.Machine, error) {
	return fsm.New(handler, StateAcquiring, lifecycleTransitions)
}
