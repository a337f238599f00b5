// Package registry compiles middleware and actions into per-action routes.
//
// For every action, the matching processing, negotiating and execution
// middleware are selected in registration order and composed into three
// steps. The execution step ends with the action's own handler. Routes are
// built once and never change afterwards.
package registry

import (
	"fmt"

	"github.com/tailored-agentic-units/broker/action"
	"github.com/tailored-agentic-units/broker/pattern"
)

// MatchAll is the pattern used when middleware is registered without one.
const MatchAll = "**"

// Middleware is a pattern-scoped handler inserted into one pipeline stage.
type Middleware struct {
	Pattern     string
	Matcher     *pattern.Matcher
	Handler     action.Handler
	Annotations action.Annotations
}

// NewMiddleware compiles p (MatchAll when empty) and fills in empty
// annotations when none are given.
func NewMiddleware(p string, h action.Handler, annotations action.Annotations) Middleware {
	if p == "" {
		p = MatchAll
	}
	if annotations == nil {
		annotations = action.Annotations{}
	}
	return Middleware{
		Pattern:     p,
		Matcher:     pattern.Compile(p),
		Handler:     h,
		Annotations: annotations,
	}
}

// Action is a named handler.
type Action struct {
	Name        string
	Handler     action.Handler
	Annotations action.Annotations
}

// Route is the compiled pipeline of one action. Process and Negotiate are
// nil when no middleware matched.
type Route struct {
	Process   action.Step
	Negotiate action.Step
	Execute   action.Step

	annotations []action.Annotations
}

// Routes is the immutable route table of a broker.
type Routes struct {
	routes map[string]*Route
	names  []string
}

// Build validates its inputs and compiles a route for every action.
func Build(processors, negotiators, executors []Middleware, actions []Action) (*Routes, error) {
	stages := []struct {
		name string
		list []Middleware
	}{
		{"processing", processors},
		{"negotiating", negotiators},
		{"execution", executors},
	}
	for _, stage := range stages {
		for i, m := range stage.list {
			if err := validateMiddleware(m); err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", stage.name, i, err)
			}
		}
	}

	r := &Routes{
		routes: make(map[string]*Route, len(actions)),
		names:  make([]string, 0, len(actions)),
	}
	for _, a := range actions {
		if err := validateAction(a); err != nil {
			return nil, err
		}
		if _, exists := r.routes[a.Name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAction, a.Name)
		}
		r.routes[a.Name] = compile(a, processors, negotiators, executors)
		r.names = append(r.names, a.Name)
	}
	return r, nil
}

func validateMiddleware(m Middleware) error {
	switch {
	case m.Handler == nil:
		return fmt.Errorf("%w: pattern %q has no handler", ErrInvalidMiddleware, m.Pattern)
	case m.Matcher == nil:
		return fmt.Errorf("%w: pattern %q is not compiled", ErrInvalidMiddleware, m.Pattern)
	case m.Annotations == nil:
		return fmt.Errorf("%w: pattern %q has no annotations", ErrInvalidMiddleware, m.Pattern)
	}
	return nil
}

func validateAction(a Action) error {
	if err := action.ValidateName(a.Name); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAction, err)
	}
	switch {
	case a.Handler == nil:
		return fmt.Errorf("%w: %s has no handler", ErrInvalidAction, a.Name)
	case a.Annotations == nil:
		return fmt.Errorf("%w: %s has no annotations", ErrInvalidAction, a.Name)
	}
	return nil
}

func compile(a Action, processors, negotiators, executors []Middleware) *Route {
	route := &Route{}

	selected := func(list []Middleware) []action.Handler {
		var handlers []action.Handler
		for _, m := range list {
			if !m.Matcher.Test(a.Name) {
				continue
			}
			handlers = append(handlers, m.Handler)
			if len(m.Annotations) > 0 {
				route.annotations = append(route.annotations, m.Annotations)
			}
		}
		return handlers
	}

	if handlers := selected(processors); len(handlers) > 0 {
		route.Process = Chain(handlers...)
	}
	if handlers := selected(negotiators); len(handlers) > 0 {
		route.Negotiate = Chain(handlers...)
	}
	route.Execute = Chain(append(selected(executors), a.Handler)...)
	route.annotations = append(route.annotations, a.Annotations)

	return route
}

// Lookup returns the route compiled for name.
func (r *Routes) Lookup(name string) (Route, bool) {
	route, ok := r.routes[name]
	if !ok {
		return Route{}, false
	}
	out := *route
	out.annotations = nil
	return out, true
}

// Has reports whether name has a route.
func (r *Routes) Has(name string) bool {
	_, ok := r.routes[name]
	return ok
}

// Names lists action names in registration order.
func (r *Routes) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Annotations returns deep copies of the merged annotation sequence of name:
// processors, negotiators, executors, then the action's own.
func (r *Routes) Annotations(name string) []action.Annotations {
	route, ok := r.routes[name]
	if !ok {
		return nil
	}
	out := make([]action.Annotations, len(route.annotations))
	for i, a := range route.annotations {
		out[i] = a.Clone()
	}
	return out
}
