package dispatcher_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/broker/dispatcher"
)

func TestDefaultConfig_Options(t *testing.T) {
	cfg := dispatcher.DefaultConfig()
	opts, err := cfg.Options()
	require.NoError(t, err)

	_, err = dispatcher.NewCore(echoImpl(), opts...)
	assert.NoError(t, err)
}

func TestConfig_Merge(t *testing.T) {
	cfg := dispatcher.DefaultConfig()
	cfg.Merge(&dispatcher.Config{
		TimeTracking:    "end-only",
		LifecycleEvents: []string{"success", "error"},
	})

	assert.Equal(t, "end-only", cfg.TimeTracking)
	assert.Equal(t, []string{"success", "error"}, cfg.LifecycleEvents)
	assert.Equal(t, "uuid", cfg.IDGenerator)
	assert.Equal(t, "inline", cfg.Futures)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dispatch.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id_generator":"none","futures":"goroutine"}`), 0o600))

	cfg, err := dispatcher.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.IDGenerator)
	assert.Equal(t, "goroutine", cfg.Futures)
	assert.Equal(t, "system", cfg.Clock)

	_, err = dispatcher.LoadConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o600))
	_, err = dispatcher.LoadConfig(bad)
	assert.Error(t, err)
}

func TestConfig_ParseEnv(t *testing.T) {
	t.Setenv("DISPATCH_TIME_TRACKING", "start-only")
	t.Setenv("DISPATCH_LIFECYCLE_EVENTS", "created,error")
	t.Setenv("DISPATCH_OBSERVER", "noop")

	cfg := dispatcher.DefaultConfig()
	require.NoError(t, cfg.ParseEnv())

	assert.Equal(t, "start-only", cfg.TimeTracking)
	assert.Equal(t, []string{"created", "error"}, cfg.LifecycleEvents)
	assert.Equal(t, "noop", cfg.Observer)
	assert.Equal(t, "uuid", cfg.IDGenerator)

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.NotEmpty(t, opts)
}

func TestConfig_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		cfg  dispatcher.Config
	}{
		{name: "id generator", cfg: dispatcher.Config{IDGenerator: "sequential"}},
		{name: "clock", cfg: dispatcher.Config{Clock: "atomic"}},
		{name: "time tracking", cfg: dispatcher.Config{TimeTracking: "sometimes"}},
		{name: "lifecycle event", cfg: dispatcher.Config{LifecycleEvents: []string{"created", "done"}}},
		{name: "futures", cfg: dispatcher.Config{Futures: "bluebird"}},
		{name: "observer", cfg: dispatcher.Config{Observer: "missing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cfg.Options()
			assert.ErrorIs(t, err, dispatcher.ErrInvalidOption)
		})
	}
}

func TestParseTimeTracking(t *testing.T) {
	tracking, err := dispatcher.ParseTimeTracking("both")
	require.NoError(t, err)
	assert.Equal(t, dispatcher.TrackAll, tracking)

	tracking, err = dispatcher.ParseTimeTracking("none")
	require.NoError(t, err)
	assert.Equal(t, dispatcher.TrackNone, tracking)
}
