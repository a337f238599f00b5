package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/broker/action"
	"github.com/tailored-agentic-units/broker/aggregator"
	"github.com/tailored-agentic-units/broker/broker"
	"github.com/tailored-agentic-units/broker/dispatcher"
	"github.com/tailored-agentic-units/broker/observability"
	"github.com/tailored-agentic-units/broker/remote"
)

func quiet() dispatcher.Option {
	return dispatcher.WithObserver(observability.NoOpObserver{})
}

func serve(t *testing.T, d dispatcher.Dispatcher) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	path, handler := remote.NewHandler(d)
	mux.Handle(path, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func remoteBroker(t *testing.T) *broker.Broker {
	t.Helper()
	b, err := broker.NewBuilder(quiet()).
		Handle("math.add", action.Func(func(c *action.Context) (any, error) {
			p := c.Params.(map[string]any)
			return p["a"].(float64) + p["b"].(float64), nil
		})).
		Handle("whoami", action.Func(func(c *action.Context) (any, error) {
			return map[string]any{"parent": c.ParentUUID, "tenant": c.Metadata["tenant"]}, nil
		})).
		Handle("forbidden", action.Func(func(c *action.Context) (any, error) {
			return nil, action.Forbidden("no access")
		})).
		Handle("tags", action.Func(func(*action.Context) (any, error) {
			return []string{"a", "b"}, nil
		})).
		Build()
	require.NoError(t, err)
	return b
}

func newClient(t *testing.T, srv *httptest.Server, opts ...dispatcher.Option) *remote.Client {
	t.Helper()
	c, err := remote.NewClient(context.Background(), srv.Client(), srv.URL+"/",
		remote.WithDispatcherOptions(append([]dispatcher.Option{quiet()}, opts...)...))
	require.NoError(t, err)
	return c
}

func TestClient_Catalog(t *testing.T) {
	c := newClient(t, serve(t, remoteBroker(t)))

	assert.Equal(t, []string{"math.add", "whoami", "forbidden", "tags"}, c.ActionsList())
	assert.True(t, c.HasActionCaller("math.add"))
	assert.False(t, c.HasActionCaller("missing"))
	assert.True(t, c.IsReady())
	assert.True(t, c.IsHealthy())
}

func TestClient_Call(t *testing.T) {
	c := newClient(t, serve(t, remoteBroker(t)), dispatcher.WithIDGenerator(func() string { return "client-uuid" }))

	v, err := c.Call(context.Background(), "math.add", map[string]any{"a": 2, "b": 3}, nil).Await()
	require.NoError(t, err)
	assert.Equal(t, float64(5), v)

	v, err = c.Call(context.Background(), "whoami", nil, action.Metadata{"tenant": "t-1"}).Await()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"parent": "client-uuid", "tenant": "t-1"}, v)

	v, err = c.Call(context.Background(), "tags", nil, nil).Await()
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, v)
}

func TestClient_Errors(t *testing.T) {
	c := newClient(t, serve(t, remoteBroker(t)))

	_, err := c.Call(context.Background(), "forbidden", nil, nil).Await()
	assert.ErrorIs(t, err, action.ErrActionForbidden)
	se, ok := action.AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, 403, se.Code)
	assert.Equal(t, "no access", se.Body)

	_, err = c.Call(context.Background(), "missing", nil, nil).Await()
	assert.ErrorIs(t, err, action.ErrActionNotFound)
}

func TestClient_RemoteNotReady(t *testing.T) {
	var ready atomic.Bool
	ready.Store(true)
	core, err := dispatcher.NewCore(dispatcher.Implementation{
		HasActionCaller: func(string) bool { return true },
		ActionsList:     func() []string { return []string{"ping"} },
		Execute:         func(*action.Context) (any, error) { return "pong", nil },
		IsReady:         ready.Load,
	}, quiet())
	require.NoError(t, err)

	c := newClient(t, serve(t, core))
	ready.Store(false)

	_, err = c.Call(context.Background(), "ping", nil, nil).Await()
	assert.ErrorIs(t, err, action.ErrDispatcherNotReady)

	require.NoError(t, c.Refresh(context.Background()))
	assert.False(t, c.IsReady())
	_, err = c.Call(context.Background(), "ping", nil, nil).Await()
	assert.ErrorIs(t, err, action.ErrDispatcherNotReady)
}

func TestClient_InAggregator(t *testing.T) {
	c := newClient(t, serve(t, remoteBroker(t)))

	agg, err := aggregator.New(quiet())
	require.NoError(t, err)
	require.NoError(t, agg.Register("calc", c))

	v, err := agg.Call(context.Background(), "calc.math.add", map[string]any{"a": 1, "b": 1}, nil).Await()
	require.NoError(t, err)
	assert.Equal(t, float64(2), v)
}

func TestNewClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := remote.NewClient(context.Background(), srv.Client(), srv.URL)
	assert.Error(t, err)
}
