package broker

import (
	"github.com/tailored-agentic-units/broker/action"
	"github.com/tailored-agentic-units/broker/dispatcher"
)

// LocalClient is a dispatcher that calls a Broker in-process, isolating the
// caller's params with a deep copy. It runs its own lifecycle, so it can be
// given different options than the broker.
type LocalClient struct {
	*dispatcher.Core

	broker       *Broker
	clone        func(any) any
	passUUID     bool
	passMetadata bool
	coreOpts     []dispatcher.Option
}

// LocalClientOption configures a LocalClient.
type LocalClientOption func(*LocalClient)

// WithCloner replaces action.CloneValue. A nil cloner passes params as is.
func WithCloner(fn func(any) any) LocalClientOption {
	return func(c *LocalClient) { c.clone = fn }
}

// WithPassUUIDDown forwards the client's uuid and parentUuid unchanged.
// By default the broker call gets the client's uuid as its parentUuid.
func WithPassUUIDDown(pass bool) LocalClientOption {
	return func(c *LocalClient) { c.passUUID = pass }
}

// WithPassMetadataDown controls whether caller metadata reaches the broker.
// Enabled by default.
func WithPassMetadataDown(pass bool) LocalClientOption {
	return func(c *LocalClient) { c.passMetadata = pass }
}

// WithDispatcherOptions configures the client's own dispatcher core.
func WithDispatcherOptions(opts ...dispatcher.Option) LocalClientOption {
	return func(c *LocalClient) { c.coreOpts = append(c.coreOpts, opts...) }
}

// NewLocalClient creates a LocalClient for b.
func (b *Broker) NewLocalClient(opts ...LocalClientOption) (*LocalClient, error) {
	c := &LocalClient{
		broker:       b,
		clone:        action.CloneValue,
		passMetadata: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clone == nil {
		c.clone = func(v any) any { return v }
	}

	core, err := dispatcher.NewCore(dispatcher.Implementation{
		HasActionCaller: b.HasActionCaller,
		ActionsList:     b.ActionsList,
		Execute:         c.execute,
		IsReady:         b.IsReady,
		IsHealthy:       b.IsHealthy,
	}, c.coreOpts...)
	if err != nil {
		return nil, err
	}
	c.Core = core
	return c, nil
}

// ActionAnnotations delegates to the broker.
func (c *LocalClient) ActionAnnotations(name string) []action.Annotations {
	return c.broker.ActionAnnotations(name)
}

func (c *LocalClient) execute(ac *action.Context) (any, error) {
	params := ac.Params
	if params == nil {
		params = map[string]any{}
	}
	params = c.clone(params)

	extra := action.Metadata{}
	if c.passUUID {
		extra[action.MetaUUID] = ac.UUID
		extra[action.MetaParentUUID] = ac.ParentUUID
	} else {
		extra[action.MetaParentUUID] = ac.UUID
	}

	meta := extra
	if c.passMetadata {
		meta = ac.Metadata.Clone()
		for k, v := range extra {
			meta[k] = v
		}
	}
	return c.broker.Call(ac.Context(), ac.Name, params, meta), nil
}
