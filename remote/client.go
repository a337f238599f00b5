package remote

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/broker/action"
	"github.com/tailored-agentic-units/broker/dispatcher"
)

type status struct {
	names   []string
	actions map[string]bool
	ready   bool
	healthy bool
}

// Client is a Dispatcher backed by a remote DispatchService. Its catalog
// and health are snapshots taken by Refresh.
type Client struct {
	*dispatcher.Core

	call   *connect.Client[structpb.Struct, structpb.Value]
	list   *connect.Client[emptypb.Empty, structpb.ListValue]
	health *connect.Client[emptypb.Empty, structpb.Struct]
	status atomic.Pointer[status]
}

type clientOptions struct {
	connect    []connect.ClientOption
	dispatcher []dispatcher.Option
}

// Option configures a Client.
type Option func(*clientOptions)

// WithConnectOptions passes options to the underlying connect clients.
func WithConnectOptions(opts ...connect.ClientOption) Option {
	return func(o *clientOptions) { o.connect = append(o.connect, opts...) }
}

// WithDispatcherOptions configures the client's dispatcher core.
func WithDispatcherOptions(opts ...dispatcher.Option) Option {
	return func(o *clientOptions) { o.dispatcher = append(o.dispatcher, opts...) }
}

// NewClient connects to the service at baseURL and loads its catalog.
func NewClient(ctx context.Context, httpClient connect.HTTPClient, baseURL string, opts ...Option) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	baseURL = strings.TrimRight(baseURL, "/")

	c := &Client{
		call:   connect.NewClient[structpb.Struct, structpb.Value](httpClient, baseURL+CallProcedure, o.connect...),
		list:   connect.NewClient[emptypb.Empty, structpb.ListValue](httpClient, baseURL+ListActionsProcedure, o.connect...),
		health: connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+HealthProcedure, o.connect...),
	}
	c.status.Store(&status{actions: map[string]bool{}})

	core, err := dispatcher.NewCore(dispatcher.Implementation{
		HasActionCaller: func(name string) bool { return c.status.Load().actions[name] },
		ActionsList:     c.actionsList,
		Execute:         c.execute,
		IsReady:         func() bool { return c.status.Load().ready },
		IsHealthy:       func() bool { return c.status.Load().healthy },
	}, o.dispatcher...)
	if err != nil {
		return nil, err
	}
	c.Core = core

	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Refresh reloads the remote catalog and health.
func (c *Client) Refresh(ctx context.Context) error {
	list, err := c.list.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return fmt.Errorf("list actions: %w", err)
	}
	health, err := c.health.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}

	s := &status{actions: map[string]bool{}}
	for _, v := range list.Msg.GetValues() {
		name := v.GetStringValue()
		if name == "" || s.actions[name] {
			continue
		}
		s.actions[name] = true
		s.names = append(s.names, name)
	}
	fields := health.Msg.GetFields()
	s.ready = fields["ready"].GetBoolValue()
	s.healthy = fields["healthy"].GetBoolValue()

	c.status.Store(s)
	return nil
}

func (c *Client) actionsList() []string {
	names := c.status.Load().names
	out := make([]string, len(names))
	copy(out, names)
	return out
}

func (c *Client) execute(ac *action.Context) (any, error) {
	meta := ac.Metadata.Clone()
	delete(meta, action.MetaUUID)
	if ac.ParentUUID == "" && ac.UUID != "" {
		meta[action.MetaParentUUID] = ac.UUID
	}

	params, err := toValue(ac.Params)
	if err != nil {
		return nil, action.BadRequest(err.Error())
	}
	metaValue, err := toValue(map[string]any(meta))
	if err != nil {
		return nil, action.BadRequest(err.Error())
	}

	req := &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldName:     structpb.NewStringValue(ac.Name),
		fieldParams:   params,
		fieldMetadata: metaValue,
	}}
	res, err := c.call.CallUnary(ac.Context(), connect.NewRequest(req))
	if err != nil {
		return nil, fromConnectError(err)
	}
	return res.Msg.AsInterface(), nil
}
