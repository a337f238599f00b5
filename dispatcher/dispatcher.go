// Package dispatcher defines the dispatcher contract and the Core that every
// concrete dispatcher embeds.
//
// A concrete dispatcher describes itself with an Implementation (a struct of
// hook functions) and gets Call, readiness checks, correlation ids, time
// tracking and lifecycle notifications from Core:
//
//	core, err := dispatcher.NewCore(dispatcher.Implementation{
//		HasActionCaller: func(name string) bool { return name == "ping" },
//		ActionsList:     func() []string { return []string{"ping"} },
//		Execute:         func(c *action.Context) (any, error) { return "pong", nil },
//	}, dispatcher.WithTimeTracking(dispatcher.TrackAll))
//
//	v, err := core.Call(ctx, "ping", nil, nil).Await()
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/tailored-agentic-units/broker/action"
	"github.com/tailored-agentic-units/broker/future"
	"github.com/tailored-agentic-units/broker/lifecycle"
	"github.com/tailored-agentic-units/broker/observability"
)

// Dispatcher is the uniform calling surface shared by brokers, aggregators
// and remote clients.
type Dispatcher interface {
	IsReady() bool
	IsHealthy() bool
	HasActionCaller(name string) bool
	ActionsList() []string
	Call(ctx context.Context, name string, params any, meta action.Metadata) future.Future
}

// Annotated is implemented by dispatchers that expose action annotations.
type Annotated interface {
	ActionAnnotations(name string) []action.Annotations
}

// Implementation supplies the behavior of a concrete dispatcher. Nil
// optional hooks skip their step.
type Implementation struct {
	// Required.
	HasActionCaller func(name string) bool
	ActionsList     func() []string
	Execute         action.Step

	// Optional.
	Process       action.Step
	PreExecute    action.Step
	ProcessResult func(value any, c *action.Context) any
	Finalize      func(c *action.Context, value any, err error)
	ExtendContext func(c *action.Context)
	OnStateChange func(state action.State, c *action.Context, value any)
	IsReady       func() bool
	IsHealthy     func() bool
	// IsReadyFor replaces IsReady as the call gate when set. Dispatchers
	// that front others use it to gate only on the owner of name.
	IsReadyFor func(name string) bool
}

// Core implements Dispatcher on top of a lifecycle.Executor.
type Core struct {
	impl     Implementation
	executor *lifecycle.Executor

	idGen    func() string
	clock    Clock
	tracking TimeTracking
	events   map[action.State]bool
	futures  future.Factory
	observer observability.Observer
	logger   *slog.Logger
	uncaught func(error)

	mu        sync.Mutex
	nextSub   int
	listeners atomic.Pointer[[]subscription]
}

type subscription struct {
	id int
	fn action.Listener
}

// NewCore validates impl and applies opts over the defaults: uuid ids,
// system clock, full time tracking, every lifecycle event emitted, inline
// futures and a slog observer.
func NewCore(impl Implementation, opts ...Option) (*Core, error) {
	switch {
	case impl.HasActionCaller == nil:
		return nil, fmt.Errorf("%w: HasActionCaller", ErrIncompleteImplementation)
	case impl.ActionsList == nil:
		return nil, fmt.Errorf("%w: ActionsList", ErrIncompleteImplementation)
	case impl.Execute == nil:
		return nil, fmt.Errorf("%w: Execute", ErrIncompleteImplementation)
	}

	c := &Core{
		impl:     impl,
		idGen:    DefaultIDGenerator,
		clock:    SystemClock,
		tracking: TrackAll,
		events:   eventSet(action.States()...),
		futures:  future.Inline,
		logger:   slog.Default(),
	}
	empty := []subscription{}
	c.listeners.Store(&empty)

	for _, opt := range opts {
		opt(c)
	}

	if c.futures == nil {
		c.futures = future.Inline
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.observer == nil {
		c.observer = observability.NewSlogObserver(c.logger)
	}
	if c.uncaught == nil {
		c.uncaught = func(err error) {
			c.logger.Warn("uncaught dispatcher error", slog.String("error", err.Error()))
		}
	}

	executor, err := lifecycle.New(lifecycle.Hooks{
		IsSupported:     impl.HasActionCaller,
		CreateContext:   c.createContext,
		Process:         impl.Process,
		PreExecute:      impl.PreExecute,
		Execute:         impl.Execute,
		Finalize:        c.finalize,
		ProcessResult:   impl.ProcessResult,
		OnStateChange:   c.onStateChange,
		OnUncaughtError: c.uncaught,
	}, c.futures)
	if err != nil {
		return nil, err
	}
	c.executor = executor
	return c, nil
}

// IsReady defaults to true.
func (c *Core) IsReady() bool {
	if c.impl.IsReady == nil {
		return true
	}
	return c.impl.IsReady()
}

// IsHealthy defaults to IsReady.
func (c *Core) IsHealthy() bool {
	if c.impl.IsHealthy == nil {
		return c.IsReady()
	}
	return c.impl.IsHealthy()
}

func (c *Core) HasActionCaller(name string) bool {
	return c.impl.HasActionCaller(name)
}

func (c *Core) ActionsList() []string {
	return c.impl.ActionsList()
}

// Futures returns the factory this dispatcher settles calls with.
func (c *Core) Futures() future.Factory {
	return c.futures
}

// Call dispatches name. A dispatcher that is not ready rejects with
// action.ErrDispatcherNotReady before any context is created. Nil params are
// replaced by an empty map. The call works on its own copy of meta.
func (c *Core) Call(ctx context.Context, name string, params any, meta action.Metadata) future.Future {
	if ready, err := c.ready(name); !ready {
		return c.futures.Reject(action.DispatcherNotReady(err))
	}
	if params == nil {
		params = map[string]any{}
	}
	return c.executor.Run(ctx, name, params, meta.Clone())
}

func (c *Core) ready(name string) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("readiness check panicked: %v", r)
		}
	}()
	if c.impl.IsReadyFor != nil {
		return c.impl.IsReadyFor(name), nil
	}
	return c.IsReady(), nil
}

// Subscribe registers a listener for the emitted lifecycle events and
// returns a function that removes it.
func (c *Core) Subscribe(fn action.Listener) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSub++
	id := c.nextSub
	current := *c.listeners.Load()
	next := make([]subscription, len(current), len(current)+1)
	copy(next, current)
	next = append(next, subscription{id: id, fn: fn})
	c.listeners.Store(&next)

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		current := *c.listeners.Load()
		next := make([]subscription, 0, len(current))
		for _, s := range current {
			if s.id != id {
				next = append(next, s)
			}
		}
		c.listeners.Store(&next)
	}
}

func (c *Core) createContext(ctx context.Context, name string, params any, meta action.Metadata) *action.Context {
	ac := action.NewContext(ctx, name, params, meta)
	ac.UUID = meta.String(action.MetaUUID)
	if ac.UUID == "" && c.idGen != nil {
		ac.UUID = c.idGen()
	}
	ac.ParentUUID = meta.String(action.MetaParentUUID)
	if c.clock != nil && c.tracking.start() {
		ac.StartTime = c.clock()
	}
	if c.impl.ExtendContext != nil {
		c.impl.ExtendContext(ac)
	}
	return ac
}

func (c *Core) finalize(ac *action.Context, value any, err error) {
	if c.clock != nil && c.tracking.end() {
		ac.EndTime = c.clock()
	}
	if c.impl.Finalize != nil {
		c.impl.Finalize(ac, value, err)
	}
}

// onStateChange runs the implementation hook for every transition, then
// notifies listeners and the observer for the configured subset.
func (c *Core) onStateChange(state action.State, ac *action.Context, value any) {
	if c.impl.OnStateChange != nil {
		c.safely(func() { c.impl.OnStateChange(state, ac, value) })
	}
	if !c.events[state] {
		return
	}
	for _, s := range *c.listeners.Load() {
		c.safely(func() { s.fn(state, ac, value) })
	}
	c.safely(func() { c.observer.OnEvent(ac.Context(), lifecycleEvent(state, ac, value)) })
}

func (c *Core) safely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.uncaught(fmt.Errorf("%w: %v", lifecycle.ErrObserverPanic, r))
		}
	}()
	fn()
}
