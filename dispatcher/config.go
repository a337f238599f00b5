package dispatcher

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"

	"github.com/tailored-agentic-units/broker/action"
	"github.com/tailored-agentic-units/broker/future"
	"github.com/tailored-agentic-units/broker/observability"
)

// Config is the serializable form of the dispatcher options.
type Config struct {
	IDGenerator     string   `json:"id_generator,omitempty" env:"ID_GENERATOR"`
	Clock           string   `json:"clock,omitempty" env:"CLOCK"`
	TimeTracking    string   `json:"time_tracking,omitempty" env:"TIME_TRACKING"`
	LifecycleEvents []string `json:"lifecycle_events,omitempty" env:"LIFECYCLE_EVENTS" envSeparator:","`
	Futures         string   `json:"futures,omitempty" env:"FUTURES"`
	Observer        string   `json:"observer,omitempty" env:"OBSERVER"`
}

// DefaultConfig mirrors the defaults applied by NewCore.
func DefaultConfig() Config {
	return Config{
		IDGenerator:     "uuid",
		Clock:           "system",
		TimeTracking:    string(TrackAll),
		LifecycleEvents: []string{"all"},
		Futures:         "inline",
		Observer:        "slog",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.IDGenerator != "" {
		c.IDGenerator = source.IDGenerator
	}
	if source.Clock != "" {
		c.Clock = source.Clock
	}
	if source.TimeTracking != "" {
		c.TimeTracking = source.TimeTracking
	}
	if len(source.LifecycleEvents) > 0 {
		c.LifecycleEvents = source.LifecycleEvents
	}
	if source.Futures != "" {
		c.Futures = source.Futures
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// LoadConfig reads a JSON config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

// EnvPrefix prefixes every variable read by ParseEnv.
const EnvPrefix = "DISPATCH_"

// ParseEnv merges DISPATCH_* environment variables into c.
func (c *Config) ParseEnv() error {
	var loaded Config
	if err := env.ParseWithOptions(&loaded, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	c.Merge(&loaded)
	return nil
}

// Options converts the config into Core options.
func (c *Config) Options() ([]Option, error) {
	var opts []Option

	switch c.IDGenerator {
	case "", "uuid":
	case "none":
		opts = append(opts, WithoutIDs())
	default:
		return nil, fmt.Errorf("%w: id generator %q", ErrInvalidOption, c.IDGenerator)
	}

	switch c.Clock {
	case "", "system":
	case "none":
		opts = append(opts, WithoutClock())
	default:
		return nil, fmt.Errorf("%w: clock %q", ErrInvalidOption, c.Clock)
	}

	if c.TimeTracking != "" {
		tracking, err := ParseTimeTracking(c.TimeTracking)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithTimeTracking(tracking))
	}

	events, err := parseEvents(c.LifecycleEvents)
	if err != nil {
		return nil, err
	}
	if events != nil {
		opts = append(opts, WithLifecycleEvents(events...))
	}

	if c.Futures != "" {
		f, ok := future.ByName(c.Futures)
		if !ok {
			return nil, fmt.Errorf("%w: futures %q", ErrInvalidOption, c.Futures)
		}
		opts = append(opts, WithFutures(f))
	}

	if c.Observer != "" {
		obs, err := observability.GetObserver(c.Observer)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
		}
		opts = append(opts, WithObserver(obs))
	}

	return opts, nil
}

// parseEvents returns nil when the list leaves the default untouched.
func parseEvents(names []string) ([]action.State, error) {
	if len(names) == 0 {
		return nil, nil
	}
	if len(names) == 1 {
		switch names[0] {
		case "all":
			return action.States(), nil
		case "none":
			return []action.State{}, nil
		}
	}
	states := make([]action.State, 0, len(names))
	for _, name := range names {
		s, err := action.ParseState(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
		}
		states = append(states, s)
	}
	return states, nil
}
