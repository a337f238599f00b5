package action

// Handler is a pipeline function. prev carries the value returned by the
// previous function of the same chain (nil for the first one). The returned
// value may be a future.Future, which is awaited before the chain continues,
// or an ImmediateResult, which ends the pipeline with a success.
type Handler func(c *Context, prev any) (any, error)

// Step is a composed pipeline stage bound to a single call.
type Step func(c *Context) (any, error)

// Func adapts a handler that ignores the previous chain value.
func Func(fn func(c *Context) (any, error)) Handler {
	return func(c *Context, _ any) (any, error) {
		return fn(c)
	}
}

// ImmediateResult short-circuits the pipeline: remaining steps are skipped
// and the call succeeds with Value.
type ImmediateResult struct {
	Value any
}

// Immediate wraps value as an ImmediateResult.
func Immediate(value any) ImmediateResult {
	return ImmediateResult{Value: value}
}

// AsImmediate reports whether v is an ImmediateResult.
func AsImmediate(v any) (ImmediateResult, bool) {
	switch r := v.(type) {
	case ImmediateResult:
		return r, true
	case *ImmediateResult:
		if r != nil {
			return *r, true
		}
	}
	return ImmediateResult{}, false
}
