package broker_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/broker/action"
	"github.com/tailored-agentic-units/broker/broker"
	"github.com/tailored-agentic-units/broker/dispatcher"
	"github.com/tailored-agentic-units/broker/future"
	"github.com/tailored-agentic-units/broker/observability"
)

func quiet() dispatcher.Option {
	return dispatcher.WithObserver(observability.NoOpObserver{})
}

func multiply(n int) action.Handler {
	return action.Func(func(c *action.Context) (any, error) {
		params := c.Params.(map[string]any)
		params["a"] = params["a"].(int) * n
		return nil, nil
	})
}

func result(c *action.Context, _ any) (any, error) {
	return c.Params.(map[string]any)["a"], nil
}

func call(t *testing.T, d dispatcher.Dispatcher, name string, params any) (any, error) {
	t.Helper()
	return d.Call(context.Background(), name, params, nil).Await()
}

func TestBroker_MiddlewareOrdering(t *testing.T) {
	b, err := broker.NewBuilder(quiet()).
		UseProcessing("", multiply(2)).
		UseProcessing("actionName*", multiply(3)).
		UseNegotiating("**", multiply(7)).
		UseExecution("*", multiply(11)).
		UseExecution("other", multiply(1000)).
		Handle("actionName1", func(c *action.Context, prev any) (any, error) {
			multiply(13)(c, prev)
			return result(c, prev)
		}).
		Build()
	require.NoError(t, err)

	v, err := call(t, b, "actionName1", map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, 2*3*7*11*13, v)
}

func TestBroker_LifecycleOrder(t *testing.T) {
	var states []action.State
	b, err := broker.NewBuilder(quiet(), dispatcher.WithListener(func(s action.State, _ *action.Context, _ any) {
		states = append(states, s)
	})).
		UseProcessing("deny.*", func(c *action.Context, _ any) (any, error) {
			return nil, action.Forbidden(c.Name)
		}).
		UseProcessing("cached.*", func(*action.Context, any) (any, error) {
			return action.Immediate("from cache"), nil
		}).
		Handle("ok.run", result).
		Handle("deny.run", result).
		Handle("cached.run", func(*action.Context, any) (any, error) {
			t.Fatal("handler must not run after an immediate result")
			return nil, nil
		}).
		Build()
	require.NoError(t, err)

	tests := []struct {
		name    string
		action  string
		want    []action.State
		wantVal any
		wantErr error
	}{
		{
			name:   "success",
			action: "ok.run",
			want:   []action.State{action.StateCreated, action.StateReady, action.StateExecution, action.StateSuccess},
		},
		{
			name:    "unknown",
			action:  "missing",
			want:    []action.State{action.StateCreated, action.StateUnknown},
			wantErr: action.ErrActionNotFound,
		},
		{
			name:    "process failure",
			action:  "deny.run",
			want:    []action.State{action.StateCreated, action.StateError},
			wantErr: action.ErrActionForbidden,
		},
		{
			name:    "immediate result",
			action:  "cached.run",
			want:    []action.State{action.StateCreated, action.StateSuccess},
			wantVal: "from cache",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			states = nil
			v, err := call(t, b, tt.action, map[string]any{"a": 1})
			assert.Equal(t, tt.want, states)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.wantVal != nil {
				assert.Equal(t, tt.wantVal, v)
			}
		})
	}
}

func TestBroker_AsyncMiddleware(t *testing.T) {
	b, err := broker.NewBuilder(quiet(), dispatcher.WithFutures(future.Goroutine)).
		UseNegotiating("", func(c *action.Context, _ any) (any, error) {
			return future.Goroutine.Start(func() (any, error) {
				c.Params.(map[string]any)["a"] = 5
				return nil, nil
			}), nil
		}).
		Handle("read", result).
		Build()
	require.NoError(t, err)

	v, err := call(t, b, "read", map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestBroker_HandlerErrorUnchanged(t *testing.T) {
	boom := errors.New("boom")
	b, err := broker.NewBuilder(quiet()).
		Handle("fail", action.Func(func(*action.Context) (any, error) { return nil, boom })).
		Build()
	require.NoError(t, err)

	_, err = call(t, b, "fail", nil)
	assert.Same(t, boom, err)
}

func TestBroker_Annotations(t *testing.T) {
	b, err := broker.NewBuilder(quiet()).
		UseProcessing("**", multiply(1), action.Annotations{"auth": true}).
		UseNegotiating("**", multiply(1)).
		UseExecution("math.*", multiply(1), action.Annotations{"timeout": "1s"}).
		Handle("math.add", result, action.Annotations{"doc": "adds"}).
		Handle("echo", result).
		Build()
	require.NoError(t, err)

	assert.Equal(t, []action.Annotations{{"auth": true}, {"timeout": "1s"}, {"doc": "adds"}}, b.ActionAnnotations("math.add"))
	assert.Equal(t, []action.Annotations{{"auth": true}, {}}, b.ActionAnnotations("echo"))
}

func TestBuilder_Reuse(t *testing.T) {
	builder := broker.NewBuilder(quiet()).Handle("a", result)

	first, err := builder.Build()
	require.NoError(t, err)

	builder.Handle("b", result)
	second, err := builder.Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, first.ActionsList())
	assert.Equal(t, []string{"a", "b"}, second.ActionsList())
	assert.False(t, first.HasActionCaller("b"))
}

func TestBuilder_LastHandlerWins(t *testing.T) {
	b, err := broker.NewBuilder(quiet()).
		Handle("x", action.Func(func(*action.Context) (any, error) { return 1, nil })).
		Handle("y", result).
		Handle("x", action.Func(func(*action.Context) (any, error) { return 2, nil })).
		Build()
	require.NoError(t, err)

	v, err := call(t, b, "x", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, []string{"x", "y"}, b.ActionsList())
}

func TestBuilder_Validation(t *testing.T) {
	tests := []struct {
		name    string
		build   func(*broker.Builder)
		wantErr error
	}{
		{name: "invalid action name", build: func(b *broker.Builder) { b.Handle("a.*", result) }, wantErr: action.ErrInvalidName},
		{name: "nil action handler", build: func(b *broker.Builder) { b.Handle("a", nil) }, wantErr: broker.ErrInvalidHandler},
		{name: "nil middleware handler", build: func(b *broker.Builder) { b.UseExecution("**", nil) }, wantErr: broker.ErrInvalidHandler},
		{name: "nil client", build: func(b *broker.Builder) { b.RegisterClient("ns", nil) }, wantErr: broker.ErrInvalidHandler},
		{name: "invalid namespace", build: func(b *broker.Builder) { b.RegisterClient("ns:", &stubClient{}) }, wantErr: action.ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := broker.NewBuilder(quiet())
			tt.build(builder)

			assert.ErrorIs(t, builder.Err(), tt.wantErr)
			_, err := builder.Build()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBroker_ContextCallReachesClients(t *testing.T) {
	users, err := broker.NewBuilder(quiet()).
		Handle("get", action.Func(func(c *action.Context) (any, error) {
			return map[string]any{"id": c.Params.(map[string]any)["id"], "parent": c.ParentUUID}, nil
		})).
		Build()
	require.NoError(t, err)

	var callerUUID string
	gateway, err := broker.NewBuilder(quiet()).
		RegisterClient("users", users).
		Handle("profile", action.Func(func(c *action.Context) (any, error) {
			callerUUID = c.UUID
			return c.Call("users.get", map[string]any{"id": 7}), nil
		})).
		Handle("local-only", action.Func(func(c *action.Context) (any, error) {
			return c.Call("profile", nil), nil
		})).
		Build()
	require.NoError(t, err)

	v, err := call(t, gateway, "profile", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": 7, "parent": callerUUID}, v)

	_, err = call(t, gateway, "local-only", nil)
	assert.ErrorIs(t, err, action.ErrActionNotFound)

	assert.Equal(t, []string{"users.get"}, gateway.Clients().ActionsList())
}

func TestBroker_RegisterClientAfterBuild(t *testing.T) {
	b, err := broker.NewBuilder(quiet()).
		Handle("relay", action.Func(func(c *action.Context) (any, error) {
			return c.Call("late.ping", nil), nil
		})).
		Build()
	require.NoError(t, err)

	_, err = call(t, b, "relay", nil)
	assert.ErrorIs(t, err, action.ErrActionNotFound)

	require.NoError(t, b.RegisterClient("late", &stubClient{}))
	v, err := call(t, b, "relay", nil)
	require.NoError(t, err)
	assert.Equal(t, "pong", v)
}

func TestBroker_ContextCallIgnoresUnreadySibling(t *testing.T) {
	b, err := broker.NewBuilder(quiet()).
		RegisterClient("", &stubClient{}).
		RegisterClient("down", downClient{}).
		Handle("relay", action.Func(func(c *action.Context) (any, error) {
			return c.Call(c.Params.(map[string]any)["target"].(string), nil), nil
		})).
		Build()
	require.NoError(t, err)

	v, err := call(t, b, "relay", map[string]any{"target": "ping"})
	require.NoError(t, err)
	assert.Equal(t, "pong", v)

	_, err = call(t, b, "relay", map[string]any{"target": "down.ping"})
	assert.ErrorIs(t, err, action.ErrDispatcherNotReady)

	_, err = call(t, b, "relay", map[string]any{"target": "nowhere"})
	assert.ErrorIs(t, err, action.ErrActionNotFound)
}

func TestBroker_ConcurrentCalls(t *testing.T) {
	b, err := broker.NewBuilder(quiet(), dispatcher.WithFutures(future.Goroutine)).
		UseProcessing("", multiply(2)).
		Handle("double", result).
		Build()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := call(t, b, "double", map[string]any{"a": i})
			assert.NoError(t, err)
			assert.Equal(t, i*2, v)
		}()
	}
	wg.Wait()
}

type stubClient struct{}

func (stubClient) IsReady() bool { return true }

func (stubClient) IsHealthy() bool { return true }

func (stubClient) HasActionCaller(name string) bool { return name == "ping" }

func (stubClient) ActionsList() []string { return []string{"ping"} }

func (stubClient) Call(context.Context, string, any, action.Metadata) future.Future {
	return future.Resolved("pong")
}

type downClient struct{ stubClient }

func (downClient) IsReady() bool { return false }
