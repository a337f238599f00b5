package broker

import (
	"errors"
	"fmt"

	"github.com/tailored-agentic-units/broker/action"
	"github.com/tailored-agentic-units/broker/dispatcher"
	"github.com/tailored-agentic-units/broker/pattern"
	"github.com/tailored-agentic-units/broker/registry"
)

type client struct {
	namespace  string
	dispatcher dispatcher.Dispatcher
}

// Builder accumulates middleware, actions and clients. Every Build produces
// an independent Broker; later changes to the builder never reach brokers
// that were already built. Registration errors are collected and reported
// by Err and Build.
type Builder struct {
	opts        []dispatcher.Option
	processors  []registry.Middleware
	negotiators []registry.Middleware
	executors   []registry.Middleware
	actions     map[string]registry.Action
	order       []string
	clients     []client
	matchers    map[string]*pattern.Matcher
	errs        []error
}

// NewBuilder creates a Builder. opts apply to every built broker.
func NewBuilder(opts ...dispatcher.Option) *Builder {
	return &Builder{
		opts:     opts,
		actions:  map[string]registry.Action{},
		matchers: map[string]*pattern.Matcher{},
	}
}

// UseProcessing adds processing middleware. An empty pattern matches every
// action.
func (b *Builder) UseProcessing(p string, h action.Handler, annotations ...action.Annotations) *Builder {
	if m, ok := b.middleware("processing", p, h, annotations); ok {
		b.processors = append(b.processors, m)
	}
	return b
}

// UseNegotiating adds negotiating middleware, run after processing and
// before execution.
func (b *Builder) UseNegotiating(p string, h action.Handler, annotations ...action.Annotations) *Builder {
	if m, ok := b.middleware("negotiating", p, h, annotations); ok {
		b.negotiators = append(b.negotiators, m)
	}
	return b
}

// UseExecution adds execution middleware, run right before the handler.
func (b *Builder) UseExecution(p string, h action.Handler, annotations ...action.Annotations) *Builder {
	if m, ok := b.middleware("execution", p, h, annotations); ok {
		b.executors = append(b.executors, m)
	}
	return b
}

// Handle registers an action. Registering a name again replaces the
// previous handler.
func (b *Builder) Handle(name string, h action.Handler, annotations ...action.Annotations) *Builder {
	if err := action.ValidateName(name); err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	if h == nil {
		b.errs = append(b.errs, fmt.Errorf("%w: action %s", ErrInvalidHandler, name))
		return b
	}
	if _, exists := b.actions[name]; !exists {
		b.order = append(b.order, name)
	}
	b.actions[name] = registry.Action{
		Name:        name,
		Handler:     h,
		Annotations: action.Merge(annotations...),
	}
	return b
}

// RegisterClient registers d on every broker built afterwards.
func (b *Builder) RegisterClient(namespace string, d dispatcher.Dispatcher) *Builder {
	if d == nil {
		b.errs = append(b.errs, fmt.Errorf("%w: nil client dispatcher", ErrInvalidHandler))
		return b
	}
	if namespace != "" {
		if err := action.ValidateName(namespace); err != nil {
			b.errs = append(b.errs, fmt.Errorf("client namespace: %w", err))
			return b
		}
	}
	b.clients = append(b.clients, client{namespace: namespace, dispatcher: d})
	return b
}

// Err reports the registration errors collected so far.
func (b *Builder) Err() error {
	return errors.Join(b.errs...)
}

// Build creates a Broker from the current registrations. opts are applied
// after the builder's own.
func (b *Builder) Build(opts ...dispatcher.Option) (*Broker, error) {
	if err := b.Err(); err != nil {
		return nil, err
	}

	actions := make([]registry.Action, 0, len(b.order))
	for _, name := range b.order {
		actions = append(actions, b.actions[name])
	}

	all := make([]dispatcher.Option, 0, len(b.opts)+len(opts))
	all = append(all, b.opts...)
	all = append(all, opts...)

	broker, err := New(
		clone(b.processors),
		clone(b.negotiators),
		clone(b.executors),
		actions,
		all...,
	)
	if err != nil {
		return nil, err
	}

	for _, c := range b.clients {
		if err := broker.RegisterClient(c.namespace, c.dispatcher); err != nil {
			return nil, err
		}
	}
	return broker, nil
}

func (b *Builder) middleware(stage, p string, h action.Handler, annotations []action.Annotations) (registry.Middleware, bool) {
	if p == "" {
		p = registry.MatchAll
	}
	if h == nil {
		b.errs = append(b.errs, fmt.Errorf("%w: %s middleware %q", ErrInvalidHandler, stage, p))
		return registry.Middleware{}, false
	}
	matcher, ok := b.matchers[p]
	if !ok {
		matcher = pattern.Compile(p)
		b.matchers[p] = matcher
	}
	return registry.Middleware{
		Pattern:     p,
		Matcher:     matcher,
		Handler:     h,
		Annotations: action.Merge(annotations...),
	}, true
}

func clone(list []registry.Middleware) []registry.Middleware {
	out := make([]registry.Middleware, len(list))
	copy(out, list)
	return out
}
