package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/broker/action"
	"github.com/tailored-agentic-units/broker/broker"
	"github.com/tailored-agentic-units/broker/cache"
	"github.com/tailored-agentic-units/broker/dispatcher"
)

func newTestBroker(t *testing.T, store cache.Store) *broker.Broker {
	t.Helper()
	logger = slog.New(slog.DiscardHandler)

	b := broker.NewBuilder()
	registerBuiltinActions(b, store)
	brk, err := b.Build(dispatcher.WithoutLifecycleEvents())
	require.NoError(t, err)
	return brk
}

func TestBuiltinActions_Catalog(t *testing.T) {
	brk := newTestBroker(t, nil)

	assert.Equal(t, []string{"datetime", "echo", "math.add", "fs.read", "fs.list"}, brk.ActionsList())
	for _, name := range brk.ActionsList() {
		anns := brk.ActionAnnotations(name)
		require.NotEmpty(t, anns, name)
		assert.NotEmpty(t, anns[len(anns)-1]["description"], name)
	}
}

func TestBuiltinActions_MathAdd(t *testing.T) {
	tests := []struct {
		name    string
		params  any
		want    any
		wantErr error
	}{
		{name: "adds numbers", params: map[string]any{"a": 2.5, "b": 4}, want: 6.5},
		{name: "missing param", params: map[string]any{"a": 1}, wantErr: action.ErrBadRequest},
		{name: "non numeric", params: map[string]any{"a": "x", "b": 1}, wantErr: action.ErrBadRequest},
	}

	brk := newTestBroker(t, cache.NewMemoryStore(0))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := brk.Call(context.Background(), "math.add", tt.params, nil).Await()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuiltinActions_FileSystem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	brk := newTestBroker(t, nil)

	got, err := brk.Call(context.Background(), "fs.read", map[string]any{"path": filepath.Join(dir, "a.txt")}, nil).Await()
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	got, err = brk.Call(context.Background(), "fs.list", map[string]any{"path": dir}, nil).Await()
	require.NoError(t, err)
	assert.Equal(t, "a.txt\nsub/", got)

	_, err = brk.Call(context.Background(), "fs.read", map[string]any{}, nil).Await()
	assert.ErrorIs(t, err, action.ErrBadRequest)
}

func TestBuiltinActions_Echo(t *testing.T) {
	brk := newTestBroker(t, nil)

	got, err := brk.Call(context.Background(), "echo", map[string]any{"msg": "hi"}, nil).Await()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"msg": "hi"}, got)
}
