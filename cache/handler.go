package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tailored-agentic-units/broker/action"
	"github.com/tailored-agentic-units/broker/future"
)

// KeyFunc derives the cache key of a call. ok=false bypasses the cache.
type KeyFunc func(c *action.Context) (key string, ok bool)

// DefaultKey keys calls by action name and JSON-encoded params.
func DefaultKey(c *action.Context) (string, bool) {
	data, err := json.Marshal(c.Params)
	if err != nil {
		return "", false
	}
	return c.Name + ":" + string(data), true
}

type handlerOptions struct {
	key    KeyFunc
	logger *slog.Logger
}

// Option configures Handler.
type Option func(*handlerOptions)

// WithKey replaces DefaultKey.
func WithKey(fn KeyFunc) Option {
	return func(o *handlerOptions) { o.key = fn }
}

// WithLogger sets the logger for store failures, which never fail a call.
func WithLogger(l *slog.Logger) Option {
	return func(o *handlerOptions) { o.logger = l }
}

// Handler memoizes h in store. Results travel through JSON, so a cached
// value comes back in its decoded form (numbers as float64, objects as
// map[string]any). Errors and immediate results are not cached.
func Handler(store Store, h action.Handler, opts ...Option) action.Handler {
	o := handlerOptions{key: DefaultKey, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	return func(c *action.Context, prev any) (any, error) {
		key, ok := o.key(c)
		if !ok {
			return h(c, prev)
		}

		data, err := store.Get(c.Context(), key)
		switch {
		case err == nil:
			var v any
			if err := json.Unmarshal(data, &v); err == nil {
				return v, nil
			}
			o.logger.WarnContext(c.Context(), "discarding undecodable cache entry", slog.String("key", key))
		case !errors.Is(err, ErrKeyNotFound):
			o.logger.WarnContext(c.Context(), "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}

		v, err := h(c, prev)
		if err != nil {
			return nil, err
		}
		if v, err = future.Await(v); err != nil {
			return nil, err
		}
		if _, immediate := action.AsImmediate(v); immediate {
			return v, nil
		}

		if err := set(c, store, key, v); err != nil {
			o.logger.WarnContext(c.Context(), "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return v, nil
	}
}

func set(c *action.Context, store Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return store.Set(c.Context(), key, data)
}
