package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tailored-agentic-units/broker/action"
	"github.com/tailored-agentic-units/broker/broker"
	"github.com/tailored-agentic-units/broker/cache"
	"github.com/tailored-agentic-units/broker/middleware"
)

// registerBuiltinActions installs the demo catalog served by `dispatch serve`.
func registerBuiltinActions(b *broker.Builder, store cache.Store) {
	b.UseProcessing("", middleware.Logging(logger)).
		UseNegotiating("math.*", middleware.RequireParams("a", "b")).
		UseNegotiating("fs.*", middleware.RequireParams("path"))

	b.Handle("datetime", action.Func(handleDatetime),
		action.Annotations{"description": "Returns the current date and time in RFC3339 format."})

	b.Handle("echo", action.Func(func(c *action.Context) (any, error) { return c.Params, nil }),
		action.Annotations{"description": "Returns its params unchanged."})

	add := action.Func(handleAdd)
	if store != nil {
		add = cache.Handler(store, add, cache.WithLogger(logger))
	}
	b.Handle("math.add", add,
		action.Annotations{"description": "Adds params a and b."})

	b.Handle("fs.read", action.Func(handleReadFile),
		action.Annotations{"description": "Reads the contents of the file at path."})

	b.Handle("fs.list", action.Func(handleListDirectory),
		action.Annotations{"description": "Lists files and directories at path."})
}

func handleDatetime(*action.Context) (any, error) {
	return time.Now().Format(time.RFC3339), nil
}

func handleAdd(c *action.Context) (any, error) {
	params := c.Params.(map[string]any)
	a, okA := number(params["a"])
	b, okB := number(params["b"])
	if !okA || !okB {
		return nil, action.BadRequest("a and b must be numbers")
	}
	return a + b, nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func pathParam(c *action.Context) (string, error) {
	path, _ := c.Params.(map[string]any)["path"].(string)
	if path == "" {
		return "", action.BadRequest("path is required")
	}
	return path, nil
}

func handleReadFile(c *action.Context) (any, error) {
	path, err := pathParam(c)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func handleListDirectory(c *action.Context) (any, error) {
	path, err := pathParam(c)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	return strings.Join(names, "\n"), nil
}
