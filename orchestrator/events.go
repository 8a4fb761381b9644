package orchestrator

import (
	"time"

	"github.com/loomworks/loom"
)

// EventKind identifies the type of event emitted by the orchestrator.
type EventKind string

const (
	// EventPipelineStarted is emitted when a pipeline run begins.
	EventPipelineStarted EventKind = "pipeline.started"

	// EventToolStarted is emitted when a tool begins execution.
	EventToolStarted EventKind = "tool.started"

	// EventToolFinished is emitted when a tool completes successfully.
	EventToolFinished EventKind = "tool.finished"

	// EventToolFailed is emitted when a tool reports failure or its input
	// is rejected.
	EventToolFailed EventKind = "tool.failed"

	// EventPipelineFinished is emitted when a pipeline run completes,
	// successfully or not.
	EventPipelineFinished EventKind = "pipeline.finished"
)

// String returns the string representation of the EventKind.
func (k EventKind) String() string {
	return string(k)
}

// Event is a structured record of what happened during a pipeline run.
// Events should be kept small; full results live on the returned Result.
type Event struct {
	// Kind identifies the event type.
	Kind EventKind

	// ExecutionID correlates the event with one pipeline invocation.
	ExecutionID string

	// ToolName is the tool that produced this event (empty for
	// pipeline-level events).
	ToolName string

	// ToolKind is the kind of that tool (empty for pipeline-level events).
	ToolKind loom.Kind

	// Time is when the event occurred.
	Time time.Time

	// Elapsed is the duration since the pipeline or tool started.
	Elapsed time.Duration

	// Seq is a monotonic sequence number per run (1-indexed).
	Seq uint64

	// Payload contains event-specific data.
	Payload map[string]any
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(kind EventKind, executionID string) Event {
	return Event{
		Kind:        kind,
		ExecutionID: executionID,
		Time:        time.Now(),
		Payload:     make(map[string]any),
	}
}

// WithTool sets the tool information on the event.
func (e Event) WithTool(name string, kind loom.Kind) Event {
	e.ToolName = name
	e.ToolKind = kind
	return e
}

// WithElapsed sets the elapsed duration on the event.
func (e Event) WithElapsed(elapsed time.Duration) Event {
	e.Elapsed = elapsed
	return e
}

// WithPayload adds a key-value pair to the event payload.
func (e Event) WithPayload(key string, value any) Event {
	if e.Payload == nil {
		e.Payload = make(map[string]any)
	}
	e.Payload[key] = value
	return e
}

// EventHandler is a function type for handling events. Implementations can
// log, store, or forward events as needed.
type EventHandler func(Event)

// MultiEventHandler combines multiple handlers into one.
func MultiEventHandler(handlers ...EventHandler) EventHandler {
	return func(e Event) {
		for _, h := range handlers {
			if h != nil {
				h(e)
			}
		}
	}
}
