// Package future provides the async-result abstraction used by dispatchers.
//
// A Future is a value that settles exactly once with either a result or an
// error. Dispatchers never assume a concrete implementation: they are generic
// over a Factory, injected per instance.
//
//	f := future.Goroutine.Start(func() (any, error) { return 42, nil })
//	v, err := f.Await()
package future

import (
	"errors"
	"fmt"
	"sync"
)

// ErrPanic marks an error recovered from a panicking function run by a Factory.
var ErrPanic = errors.New("panic recovered")

// Future is a settle-once asynchronous result.
type Future interface {
	// Await blocks until the future settles and returns its outcome.
	Await() (any, error)
	// Done is closed once the future has settled.
	Done() <-chan struct{}
}

// Factory creates futures. Implementations decide where work runs.
type Factory interface {
	Resolve(value any) Future
	Reject(err error) Future
	Start(fn func() (any, error)) Future
}

// Promise is the default Future implementation. The first call to Resolve or
// Reject settles it; later calls are ignored.
type Promise struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

// NewPromise returns a pending promise.
func NewPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

func (p *Promise) Resolve(value any) {
	p.settle(value, nil)
}

func (p *Promise) Reject(err error) {
	p.settle(nil, err)
}

func (p *Promise) settle(value any, err error) {
	p.once.Do(func() {
		p.value = value
		p.err = err
		close(p.done)
	})
}

func (p *Promise) Await() (any, error) {
	<-p.done
	return p.value, p.err
}

func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Resolved returns a future already settled with value.
func Resolved(value any) Future {
	p := NewPromise()
	p.Resolve(value)
	return p
}

// Rejected returns a future already settled with err.
func Rejected(err error) Future {
	p := NewPromise()
	p.Reject(err)
	return p
}

// Settled reports whether f has settled without blocking.
func Settled(f Future) bool {
	select {
	case <-f.Done():
		return true
	default:
		return false
	}
}

// Await resolves v if it is a Future, following nested futures until a plain
// value or an error is reached. Non-future values are returned unchanged.
func Await(v any) (any, error) {
	for {
		f, ok := v.(Future)
		if !ok || f == nil {
			return v, nil
		}
		var err error
		if v, err = f.Await(); err != nil {
			return nil, err
		}
	}
}

// Then chains fn after f. fn receives the settled value; a rejection skips fn
// and propagates. Continuations of settled futures run in the caller.
func Then(f Future, fn func(any) (any, error)) Future {
	run := func() (any, error) {
		v, err := Await(f)
		if err != nil {
			return nil, err
		}
		return fn(v)
	}
	if Settled(f) {
		return Inline.Start(run)
	}
	return Goroutine.Start(run)
}

func call(fn func() (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn()
}
