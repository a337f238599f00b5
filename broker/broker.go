// Package broker provides the ServiceBroker: a dispatcher that runs named
// actions through pattern-routed middleware.
//
// Brokers are assembled with a Builder and are immutable once built:
//
//	b, err := broker.NewBuilder().
//		UseProcessing("math.*", validate).
//		Handle("math.add", add).
//		Build()
//
//	sum, err := b.Call(ctx, "math.add", map[string]any{"a": 1, "b": 2}, nil).Await()
//
// Handlers reach registered client dispatchers through action.Context.Call.
package broker

import (
	"fmt"

	"github.com/tailored-agentic-units/broker/action"
	"github.com/tailored-agentic-units/broker/aggregator"
	"github.com/tailored-agentic-units/broker/dispatcher"
	"github.com/tailored-agentic-units/broker/observability"
	"github.com/tailored-agentic-units/broker/registry"
)

// Broker is a dispatcher over a compiled route table.
type Broker struct {
	*dispatcher.Core

	routes  *registry.Routes
	clients *aggregator.Aggregator
}

// New compiles the route table and wires it into a dispatcher core.
// Invalid middleware or actions fail here, before any call is possible.
func New(processors, negotiators, executors []registry.Middleware, actions []registry.Action, opts ...dispatcher.Option) (*Broker, error) {
	routes, err := registry.Build(processors, negotiators, executors, actions)
	if err != nil {
		return nil, fmt.Errorf("failed to build routes: %w", err)
	}

	clientOpts := make([]dispatcher.Option, 0, len(opts)+2)
	clientOpts = append(clientOpts, opts...)
	clientOpts = append(clientOpts,
		dispatcher.WithoutLifecycleEvents(),
		dispatcher.WithObserver(observability.NoOpObserver{}),
	)
	clients, err := aggregator.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client aggregator: %w", err)
	}

	b := &Broker{routes: routes, clients: clients}
	core, err := dispatcher.NewCore(dispatcher.Implementation{
		HasActionCaller: routes.Has,
		ActionsList:     routes.Names,
		Process:         b.process,
		PreExecute:      b.negotiate,
		Execute:         b.execute,
		ExtendContext:   b.extendContext,
	}, opts...)
	if err != nil {
		return nil, err
	}
	b.Core = core
	return b, nil
}

// ActionAnnotations returns the merged annotations of a local action.
func (b *Broker) ActionAnnotations(name string) []action.Annotations {
	return b.routes.Annotations(name)
}

// RegisterClient makes the actions of d reachable from handlers through
// action.Context.Call, under namespace when it is not empty.
func (b *Broker) RegisterClient(namespace string, d dispatcher.Dispatcher) error {
	return b.clients.Register(namespace, d)
}

// Clients returns the aggregator behind action.Context.Call.
func (b *Broker) Clients() *aggregator.Aggregator {
	return b.clients
}

func (b *Broker) extendContext(c *action.Context) {
	c.SetCaller(b.clients.Call)
}

func (b *Broker) process(c *action.Context) (any, error) {
	route, _ := b.routes.Lookup(c.Name)
	if route.Process == nil {
		return nil, nil
	}
	return route.Process(c)
}

func (b *Broker) negotiate(c *action.Context) (any, error) {
	route, _ := b.routes.Lookup(c.Name)
	if route.Negotiate == nil {
		return nil, nil
	}
	return route.Negotiate(c)
}

func (b *Broker) execute(c *action.Context) (any, error) {
	route, ok := b.routes.Lookup(c.Name)
	if !ok {
		return nil, action.ActionNotFound(c.Name)
	}
	return route.Execute(c)
}
