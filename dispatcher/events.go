package dispatcher

import (
	"time"

	"github.com/tailored-agentic-units/broker/action"
	"github.com/tailored-agentic-units/broker/observability"
)

var levels = map[action.State]observability.Level{
	action.StateCreated:   observability.LevelVerbose,
	action.StateReady:     observability.LevelVerbose,
	action.StateExecution: observability.LevelVerbose,
	action.StateSuccess:   observability.LevelInfo,
	action.StateUnknown:   observability.LevelWarning,
	action.StateError:     observability.LevelError,
}

func lifecycleEvent(state action.State, c *action.Context, value any) observability.Event {
	data := map[string]any{
		"action": c.Name,
	}
	if c.UUID != "" {
		data["uuid"] = c.UUID
	}
	if c.ParentUUID != "" {
		data["parent_uuid"] = c.ParentUUID
	}
	if d := c.Duration(); d > 0 {
		data["duration"] = d
	}
	if err, ok := value.(error); ok {
		data["error"] = err.Error()
	}

	return observability.Event{
		Type:      observability.ActionEventType(state),
		Level:     levels[state],
		Timestamp: time.Now(),
		Source:    "dispatcher.Call",
		Data:      data,
	}
}
