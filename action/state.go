package action

import "fmt"

// State is a lifecycle state of a single call.
type State string

const (
	StateCreated   State = "created"
	StateUnknown   State = "unknown"
	StateReady     State = "ready"
	StateExecution State = "execution"
	StateSuccess   State = "success"
	StateError     State = "error"
)

// States lists every state in lifecycle order.
func States() []State {
	return []State{StateCreated, StateUnknown, StateReady, StateExecution, StateSuccess, StateError}
}

// Terminal reports whether no transition follows s.
func (s State) Terminal() bool {
	return s == StateUnknown || s == StateSuccess || s == StateError
}

// ParseState validates a state name.
func ParseState(name string) (State, error) {
	for _, s := range States() {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown lifecycle state: %q", name)
}

// Listener observes state transitions. value carries the settled result on
// StateSuccess and the error on StateError and StateUnknown.
type Listener func(state State, c *Context, value any)
