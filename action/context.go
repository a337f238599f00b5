// Package action defines the shared vocabulary of the dispatch core: the
// per-call Context, handler signatures, lifecycle states, the immediate
// result short-circuit and the service error taxonomy.
package action

import (
	"context"
	"time"

	"github.com/tailored-agentic-units/broker/future"
)

// Metadata keys carrying correlation ids between dispatchers.
const (
	MetaUUID       = "uuid"
	MetaParentUUID = "parentUuid"
)

// Metadata is the free-form mapping that travels alongside params.
type Metadata map[string]any

// Clone returns a shallow copy of m. A nil receiver yields an empty map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// String returns the value stored under key if it is a non-empty string.
func (m Metadata) String(key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// Caller dispatches a call to another action on behalf of a running one.
type Caller func(ctx context.Context, name string, params any, meta Metadata) future.Future

// Context is the mutable per-call record threaded through every pipeline
// step. It is owned by the lifecycle run that created it.
type Context struct {
	Name       string
	Params     any
	Metadata   Metadata
	UUID       string
	ParentUUID string
	StartTime  time.Time // zero when start tracking is disabled
	EndTime    time.Time // zero when end tracking is disabled

	ctx    context.Context
	caller Caller
}

// NewContext creates a Context for a call to name. A nil ctx is replaced by
// context.Background and nil metadata by an empty map.
func NewContext(ctx context.Context, name string, params any, meta Metadata) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if meta == nil {
		meta = Metadata{}
	}
	return &Context{
		Name:     name,
		Params:   params,
		Metadata: meta,
		ctx:      ctx,
	}
}

// Context returns the Go context the call was issued with.
func (c *Context) Context() context.Context {
	return c.ctx
}

// SetContext replaces the Go context of the call. Steps and nested calls
// that run afterwards see ctx.
func (c *Context) SetContext(ctx context.Context) {
	if ctx != nil {
		c.ctx = ctx
	}
}

// SetCaller installs the dispatcher used by Call.
func (c *Context) SetCaller(caller Caller) {
	c.caller = caller
}

// Call invokes another action, recording this call's uuid as its parent.
// Without an installed caller every name is reported as not found.
func (c *Context) Call(name string, params any) future.Future {
	if c.caller == nil {
		return future.Rejected(ActionNotFound(name))
	}
	return c.caller(c.ctx, name, params, Metadata{MetaParentUUID: c.UUID})
}

// Duration is the time between StartTime and EndTime, or zero when either
// was not tracked.
func (c *Context) Duration() time.Duration {
	if c.StartTime.IsZero() || c.EndTime.IsZero() {
		return 0
	}
	return c.EndTime.Sub(c.StartTime)
}
