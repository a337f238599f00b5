// Package lifecycle implements the state machine that turns a call
// (name, params, metadata) into a settled result.
//
//	created -> unknown
//	created -> ready -> execution -> success | error
//
// Each step is an optional hook. Steps may return a future.Future, which is
// awaited in place, or an action.ImmediateResult, which ends the run with a
// success. Finalize runs exactly once per call whatever the outcome.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tailored-agentic-units/broker/action"
	"github.com/tailored-agentic-units/broker/future"
)

// Hooks are the pluggable steps of a run. Only Execute is required.
type Hooks struct {
	IsSupported     func(name string) bool
	CreateContext   func(ctx context.Context, name string, params any, meta action.Metadata) *action.Context
	Process         action.Step
	PreExecute      action.Step
	Execute         action.Step
	Finalize        func(c *action.Context, value any, err error)
	ProcessResult   func(value any, c *action.Context) any
	OnStateChange   func(state action.State, c *action.Context, value any)
	OnUncaughtError func(err error)
}

// Executor runs calls through Hooks. It holds no per-call state and is safe
// for concurrent use.
type Executor struct {
	hooks   Hooks
	futures future.Factory
}

// New validates hooks and returns an Executor producing futures from
// factory (future.Inline when nil).
func New(hooks Hooks, factory future.Factory) (*Executor, error) {
	if hooks.Execute == nil {
		return nil, ErrMissingExecute
	}
	if factory == nil {
		factory = future.Inline
	}
	if hooks.CreateContext == nil {
		hooks.CreateContext = action.NewContext
	}
	if hooks.OnUncaughtError == nil {
		hooks.OnUncaughtError = func(err error) {
			slog.Default().Warn("uncaught lifecycle error", slog.String("error", err.Error()))
		}
	}
	return &Executor{hooks: hooks, futures: factory}, nil
}

// Run drives one call through the lifecycle. The returned future resolves
// with the final value or rejects with the error of the failing step.
func (e *Executor) Run(ctx context.Context, name string, params any, meta action.Metadata) future.Future {
	return e.futures.Start(func() (any, error) {
		return e.run(ctx, name, params, meta)
	})
}

func (e *Executor) run(ctx context.Context, name string, params any, meta action.Metadata) (any, error) {
	c := e.hooks.CreateContext(ctx, name, params, meta)
	e.emit(action.StateCreated, c, nil)

	if e.hooks.IsSupported != nil {
		supported, err := e.supported(name)
		if err != nil {
			return e.fail(c, err)
		}
		if !supported {
			err := action.ActionNotFound(name)
			e.finalize(c, nil, err)
			e.emit(action.StateUnknown, c, err)
			return nil, err
		}
	}

	if e.hooks.Process != nil {
		v, err := e.step(e.hooks.Process, c)
		if err != nil {
			return e.fail(c, err)
		}
		if r, ok := action.AsImmediate(v); ok {
			return e.succeed(c, r.Value)
		}
	}
	e.emit(action.StateReady, c, nil)

	if e.hooks.PreExecute != nil {
		v, err := e.step(e.hooks.PreExecute, c)
		if err != nil {
			return e.fail(c, err)
		}
		if r, ok := action.AsImmediate(v); ok {
			return e.succeed(c, r.Value)
		}
	}
	e.emit(action.StateExecution, c, nil)

	v, err := e.step(e.hooks.Execute, c)
	if err != nil {
		return e.fail(c, err)
	}
	if r, ok := action.AsImmediate(v); ok {
		v = r.Value
	}
	return e.succeed(c, v)
}

func (e *Executor) succeed(c *action.Context, v any) (any, error) {
	e.finalize(c, v, nil)
	if e.hooks.ProcessResult != nil {
		var err error
		if v, err = e.processResult(v, c); err != nil {
			e.emit(action.StateError, c, err)
			return nil, err
		}
	}
	e.emit(action.StateSuccess, c, v)
	return v, nil
}

func (e *Executor) fail(c *action.Context, err error) (any, error) {
	e.finalize(c, nil, err)
	e.emit(action.StateError, c, err)
	return nil, err
}

// step runs fn, recovering panics and awaiting a returned future.
func (e *Executor) step(fn action.Step, c *action.Context) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	if v, err = fn(c); err != nil {
		return nil, err
	}
	return future.Await(v)
}

func (e *Executor) supported(name string) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return e.hooks.IsSupported(name), nil
}

func (e *Executor) processResult(v any, c *action.Context) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return e.hooks.ProcessResult(v, c), nil
}

func (e *Executor) finalize(c *action.Context, v any, err error) {
	if e.hooks.Finalize == nil {
		return
	}
	defer e.recoverUncaught(ErrPanic)
	e.hooks.Finalize(c, v, err)
}

// emit notifies OnStateChange. Observer failures never reach the call.
func (e *Executor) emit(state action.State, c *action.Context, value any) {
	if e.hooks.OnStateChange == nil {
		return
	}
	defer e.recoverUncaught(ErrObserverPanic)
	e.hooks.OnStateChange(state, c, value)
}

func (e *Executor) recoverUncaught(kind error) {
	if r := recover(); r != nil {
		e.hooks.OnUncaughtError(fmt.Errorf("%w: %v", kind, r))
	}
}
