// Package middleware holds reusable handlers for the processing,
// negotiating and execution stages of a broker.
package middleware

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tailored-agentic-units/broker/action"
)

// MutateParams replaces the call params with the value returned by fn.
func MutateParams(fn func(params any, c *action.Context) (any, error)) action.Handler {
	return func(c *action.Context, _ any) (any, error) {
		params, err := fn(c.Params, c)
		if err != nil {
			return nil, err
		}
		c.Params = params
		return nil, nil
	}
}

// RequireParams rejects calls whose params are not a map holding every key.
func RequireParams(keys ...string) action.Handler {
	return func(c *action.Context, _ any) (any, error) {
		params, ok := c.Params.(map[string]any)
		if !ok {
			return nil, action.BadRequest(fmt.Sprintf("%s: params must be an object", c.Name))
		}
		for _, k := range keys {
			if _, ok := params[k]; !ok {
				return nil, action.BadRequest(fmt.Sprintf("%s: missing param %q", c.Name, k))
			}
		}
		return nil, nil
	}
}

// Cancel ends the call with an immediate result when cancelled reports
// true. The value is produced by result, or nil when result is nil.
func Cancel(cancelled func(c *action.Context) bool, result func(c *action.Context) any) action.Handler {
	return func(c *action.Context, _ any) (any, error) {
		if !cancelled(c) {
			return nil, nil
		}
		var v any
		if result != nil {
			v = result(c)
		}
		return action.Immediate(v), nil
	}
}

// ErrCallCancelled wraps the context error returned by ContextGuard.
var ErrCallCancelled = errors.New("call cancelled")

// ContextGuard rejects the call once its Go context is done.
func ContextGuard() action.Handler {
	return func(c *action.Context, _ any) (any, error) {
		if err := c.Context().Err(); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCallCancelled, c.Name, err)
		}
		return nil, nil
	}
}

// Authorize rejects with action.ErrActionForbidden when allow returns
// false. The policy itself lives in allow.
func Authorize(allow func(c *action.Context) bool) action.Handler {
	return func(c *action.Context, _ any) (any, error) {
		if !allow(c) {
			return nil, action.Forbidden(c.Name)
		}
		return nil, nil
	}
}

// Logging logs each call reaching this stage at debug level. A nil logger
// uses slog.Default.
func Logging(logger *slog.Logger) action.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *action.Context, prev any) (any, error) {
		logger.DebugContext(c.Context(), "dispatching action",
			slog.String("action", c.Name),
			slog.String("uuid", c.UUID),
			slog.String("parent_uuid", c.ParentUUID),
		)
		return prev, nil
	}
}
