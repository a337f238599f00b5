package registry

import (
	"github.com/tailored-agentic-units/broker/action"
	"github.com/tailored-agentic-units/broker/future"
)

// Chain composes handlers sequentially. Each handler receives the value
// returned by the previous one; a returned future is awaited before the next
// handler runs. An error or an ImmediateResult stops the chain and is
// returned as is.
func Chain(handlers ...action.Handler) action.Step {
	return func(c *action.Context) (any, error) {
		var prev any
		for _, h := range handlers {
			v, err := h(c, prev)
			if err != nil {
				return nil, err
			}
			if v, err = future.Await(v); err != nil {
				return nil, err
			}
			if _, ok := action.AsImmediate(v); ok {
				return v, nil
			}
			prev = v
		}
		return prev, nil
	}
}
