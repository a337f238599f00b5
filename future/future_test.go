package future_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/broker/future"
)

func TestPromise_SettlesOnce(t *testing.T) {
	p := future.NewPromise()
	assert.False(t, future.Settled(p))

	p.Resolve(1)
	p.Reject(errors.New("late"))
	p.Resolve(2)

	v, err := p.Await()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.True(t, future.Settled(p))
}

func TestFactories(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		factory future.Factory
	}{
		{name: "inline", factory: future.Inline},
		{name: "goroutine", factory: future.Goroutine},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.factory.Start(func() (any, error) { return "ok", nil }).Await()
			require.NoError(t, err)
			assert.Equal(t, "ok", v)

			_, err = tt.factory.Start(func() (any, error) { return nil, boom }).Await()
			assert.ErrorIs(t, err, boom)

			_, err = tt.factory.Start(func() (any, error) { panic("bad") }).Await()
			assert.ErrorIs(t, err, future.ErrPanic)

			v, err = tt.factory.Resolve(3).Await()
			require.NoError(t, err)
			assert.Equal(t, 3, v)

			_, err = tt.factory.Reject(boom).Await()
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestInline_ReturnsSettled(t *testing.T) {
	f := future.Inline.Start(func() (any, error) { return 1, nil })
	assert.True(t, future.Settled(f))
}

func TestAwait_Nested(t *testing.T) {
	inner := future.Goroutine.Start(func() (any, error) {
		time.Sleep(5 * time.Millisecond)
		return "deep", nil
	})
	outer := future.Resolved(inner)

	v, err := future.Await(outer)
	require.NoError(t, err)
	assert.Equal(t, "deep", v)

	v, err = future.Await("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", v)
}

func TestThen(t *testing.T) {
	double := func(v any) (any, error) { return v.(int) * 2, nil }

	v, err := future.Then(future.Resolved(21), double).Await()
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	pending := future.NewPromise()
	chained := future.Then(pending, double)
	pending.Resolve(5)
	v, err = chained.Await()
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	boom := errors.New("boom")
	called := false
	_, err = future.Then(future.Rejected(boom), func(v any) (any, error) {
		called = true
		return v, nil
	}).Await()
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
}

func TestByName(t *testing.T) {
	f, ok := future.ByName("goroutine")
	assert.True(t, ok)
	assert.Equal(t, future.Goroutine, f)

	f, ok = future.ByName("")
	assert.True(t, ok)
	assert.Equal(t, future.Inline, f)

	_, ok = future.ByName("bluebird")
	assert.False(t, ok)
}
