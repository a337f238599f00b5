package dispatcher

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/broker/action"
	"github.com/tailored-agentic-units/broker/future"
	"github.com/tailored-agentic-units/broker/observability"
)

// Clock samples call timestamps.
type Clock func() time.Time

// SystemClock is the default clock.
func SystemClock() time.Time { return time.Now() }

// DefaultIDGenerator returns random UUIDs.
func DefaultIDGenerator() string { return uuid.NewString() }

// TimeTracking selects which call timestamps are sampled.
type TimeTracking string

const (
	TrackAll       TimeTracking = "all"
	TrackStartOnly TimeTracking = "start-only"
	TrackEndOnly   TimeTracking = "end-only"
	TrackNone      TimeTracking = "none"
)

func (t TimeTracking) start() bool { return t == TrackAll || t == TrackStartOnly }

func (t TimeTracking) end() bool { return t == TrackAll || t == TrackEndOnly }

// ParseTimeTracking validates a policy name. "both" is accepted for "all".
func ParseTimeTracking(name string) (TimeTracking, error) {
	switch TimeTracking(name) {
	case TrackAll, "both":
		return TrackAll, nil
	case TrackStartOnly, TrackEndOnly, TrackNone:
		return TimeTracking(name), nil
	}
	return "", fmt.Errorf("%w: time tracking %q", ErrInvalidOption, name)
}

// Option configures a Core.
type Option func(*Core)

// WithIDGenerator replaces the uuid generator used for call ids.
func WithIDGenerator(fn func() string) Option {
	return func(c *Core) { c.idGen = fn }
}

// WithoutIDs disables id generation. Ids passed in metadata are still used.
func WithoutIDs() Option {
	return func(c *Core) { c.idGen = nil }
}

// WithClock replaces the clock.
func WithClock(clock Clock) Option {
	return func(c *Core) { c.clock = clock }
}

// WithoutClock disables timestamps regardless of the tracking policy.
func WithoutClock() Option {
	return func(c *Core) { c.clock = nil }
}

// WithTimeTracking sets which timestamps are sampled.
func WithTimeTracking(t TimeTracking) Option {
	return func(c *Core) { c.tracking = t }
}

// WithLifecycleEvents restricts notifications to states.
func WithLifecycleEvents(states ...action.State) Option {
	return func(c *Core) { c.events = eventSet(states...) }
}

// WithAllLifecycleEvents emits every state.
func WithAllLifecycleEvents() Option {
	return WithLifecycleEvents(action.States()...)
}

// WithoutLifecycleEvents disables listener and observer notifications.
func WithoutLifecycleEvents() Option {
	return WithLifecycleEvents()
}

// WithFutures sets the factory calls are settled with.
func WithFutures(f future.Factory) Option {
	return func(c *Core) { c.futures = f }
}

// WithObserver overrides the default SlogObserver.
func WithObserver(o observability.Observer) Option {
	return func(c *Core) { c.observer = o }
}

// WithLogger sets the logger used by the default observer and error sink.
func WithLogger(l *slog.Logger) Option {
	return func(c *Core) { c.logger = l }
}

// WithUncaughtErrorHandler receives failures of observers and listeners.
func WithUncaughtErrorHandler(fn func(error)) Option {
	return func(c *Core) { c.uncaught = fn }
}

// WithListener subscribes fn at construction.
func WithListener(fn action.Listener) Option {
	return func(c *Core) {
		current := *c.listeners.Load()
		c.nextSub++
		next := append(append([]subscription{}, current...), subscription{id: c.nextSub, fn: fn})
		c.listeners.Store(&next)
	}
}

func eventSet(states ...action.State) map[action.State]bool {
	set := make(map[action.State]bool, len(states))
	for _, s := range states {
		set[s] = true
	}
	return set
}
