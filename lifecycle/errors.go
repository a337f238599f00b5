package lifecycle

import "errors"

var (
	// ErrMissingExecute is returned by New when Hooks.Execute is nil.
	ErrMissingExecute = errors.New("lifecycle: execute hook is required")
	// ErrPanic wraps a panic recovered from a pipeline step.
	ErrPanic = errors.New("lifecycle: step panicked")
	// ErrObserverPanic wraps a panic recovered from OnStateChange.
	ErrObserverPanic = errors.New("lifecycle: state observer panicked")
)
