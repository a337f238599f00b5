package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tailored-agentic-units/broker/action"
)

// Tracing opens one span per call, from the created state to the terminal
// state. Spans are keyed by the call's Context, whose Go context carries the
// span afterwards so nested calls become child spans.
type Tracing struct {
	tracer trace.Tracer
	spans  sync.Map // *action.Context -> trace.Span
}

// NewTracing creates a Tracing that starts spans with tracer.
func NewTracing(tracer trace.Tracer) *Tracing {
	return &Tracing{tracer: tracer}
}

// Listener returns an action.Listener. It needs the created state and every
// terminal state to be emitted.
func (t *Tracing) Listener() action.Listener {
	return func(state action.State, c *action.Context, value any) {
		if state == action.StateCreated {
			t.start(c)
			return
		}

		v, ok := t.spans.Load(c)
		if !ok {
			return
		}
		span := v.(trace.Span)
		span.AddEvent(string(state))
		if !state.Terminal() {
			return
		}

		t.spans.Delete(c)
		switch state {
		case action.StateSuccess:
			span.SetStatus(codes.Ok, "")
		default:
			if err, ok := value.(error); ok {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Error, fmt.Sprint(value))
			}
		}
		span.End()
	}
}

func (t *Tracing) start(c *action.Context) {
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	attrs := []attribute.KeyValue{attribute.String("action.name", c.Name)}
	if c.UUID != "" {
		attrs = append(attrs, attribute.String("action.uuid", c.UUID))
	}
	if c.ParentUUID != "" {
		attrs = append(attrs, attribute.String("action.parent_uuid", c.ParentUUID))
	}

	ctx, span := t.tracer.Start(ctx, "action "+c.Name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	c.SetContext(ctx)
	t.spans.Store(c, span)
}
