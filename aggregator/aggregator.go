// Package aggregator composes dispatchers behind one calling surface.
//
// Each registered dispatcher exposes its actions either as is or under
// "namespace.". The name table is a snapshot rebuilt on every registration
// and swapped atomically, so calls never wait on registration.
//
//	agg, _ := aggregator.New()
//	agg.Register("", local)
//	agg.Register("billing", remote)
//	agg.Call(ctx, "billing.invoice.get", params, nil)
package aggregator

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tailored-agentic-units/broker/action"
	"github.com/tailored-agentic-units/broker/dispatcher"
)

// ErrInvalidClient is returned by Register for a nil dispatcher or a
// malformed namespace.
var ErrInvalidClient = errors.New("invalid client")

type registration struct {
	namespace  string
	dispatcher dispatcher.Dispatcher
}

type caller struct {
	name       string
	dispatcher dispatcher.Dispatcher
}

// snapshot is immutable once published.
type snapshot struct {
	clients []registration
	callers map[string]caller
	names   []string
}

// Aggregator is a Dispatcher fanning calls out to registered dispatchers.
type Aggregator struct {
	*dispatcher.Core

	mu    sync.Mutex
	state atomic.Pointer[snapshot]
}

// New creates an empty Aggregator. opts configure its dispatcher core.
func New(opts ...dispatcher.Option) (*Aggregator, error) {
	a := &Aggregator{}
	a.state.Store(&snapshot{callers: map[string]caller{}})

	core, err := dispatcher.NewCore(dispatcher.Implementation{
		HasActionCaller: a.hasActionCaller,
		ActionsList:     a.actionsList,
		Execute:         a.execute,
		IsReady:         a.isReady,
		IsHealthy:       a.isHealthy,
		IsReadyFor:      a.isReadyFor,
	}, opts...)
	if err != nil {
		return nil, err
	}
	a.Core = core
	return a, nil
}

// Register adds d, exposing its actions under namespace ("" for none).
// Actions of later registrations win on name collisions.
func (a *Aggregator) Register(namespace string, d dispatcher.Dispatcher) error {
	if d == nil {
		return fmt.Errorf("%w: nil dispatcher", ErrInvalidClient)
	}
	if namespace != "" {
		if err := action.ValidateName(namespace); err != nil {
			return fmt.Errorf("%w: namespace: %w", ErrInvalidClient, err)
		}
		if strings.HasSuffix(namespace, ".") {
			return fmt.Errorf("%w: namespace %q ends with '.'", ErrInvalidClient, namespace)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	current := a.state.Load()
	clients := make([]registration, len(current.clients), len(current.clients)+1)
	copy(clients, current.clients)
	clients = append(clients, registration{namespace: namespace, dispatcher: d})
	a.state.Store(build(clients))
	return nil
}

// Refresh rebuilds the name table, picking up catalog changes of the
// registered dispatchers.
func (a *Aggregator) Refresh() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Store(build(a.state.Load().clients))
}

func build(clients []registration) *snapshot {
	s := &snapshot{clients: clients, callers: map[string]caller{}}
	for _, r := range clients {
		for _, name := range r.dispatcher.ActionsList() {
			full := name
			if r.namespace != "" {
				full = r.namespace + "." + name
			}
			if _, exists := s.callers[full]; !exists {
				s.names = append(s.names, full)
			}
			s.callers[full] = caller{name: name, dispatcher: r.dispatcher}
		}
	}
	return s
}

func (a *Aggregator) hasActionCaller(name string) bool {
	_, ok := a.state.Load().callers[name]
	return ok
}

func (a *Aggregator) actionsList() []string {
	names := a.state.Load().names
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// ActionAnnotations returns the annotations the owning dispatcher reports
// for name, or nil when it does not expose any.
func (a *Aggregator) ActionAnnotations(name string) []action.Annotations {
	c, ok := a.state.Load().callers[name]
	if !ok {
		return nil
	}
	if annotated, ok := c.dispatcher.(dispatcher.Annotated); ok {
		return annotated.ActionAnnotations(c.name)
	}
	return nil
}

// execute forwards to the owning dispatcher with the unprefixed name. The
// forwarded call keeps the caller's parentUuid; without one, this call's
// uuid is injected.
func (a *Aggregator) execute(c *action.Context) (any, error) {
	target, ok := a.state.Load().callers[c.Name]
	if !ok {
		return nil, action.ActionNotFound(c.Name)
	}
	meta := c.Metadata.Clone()
	delete(meta, action.MetaUUID)
	if c.ParentUUID == "" && c.UUID != "" {
		meta[action.MetaParentUUID] = c.UUID
	}
	return target.dispatcher.Call(c.Context(), target.name, c.Params, meta), nil
}

func (a *Aggregator) isReady() bool {
	return all(a.state.Load().clients, dispatcher.Dispatcher.IsReady)
}

// isReadyFor gates a call on the dispatcher owning name only. Unknown names
// pass, so the lifecycle rejects them as not found without asking any child.
func (a *Aggregator) isReadyFor(name string) bool {
	target, ok := a.state.Load().callers[name]
	if !ok {
		return true
	}
	return all([]registration{{dispatcher: target.dispatcher}}, dispatcher.Dispatcher.IsReady)
}

func (a *Aggregator) isHealthy() bool {
	return all(a.state.Load().clients, dispatcher.Dispatcher.IsHealthy)
}

// all is false when any check returns false or panics.
func all(clients []registration, check func(dispatcher.Dispatcher) bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	for _, r := range clients {
		if !check(r.dispatcher) {
			return false
		}
	}
	return true
}
