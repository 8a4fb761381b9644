package loom

import "context"

// Kind identifies a tool's kind. It doubles as the short tool key used in
// static pipeline definitions; the config package maps keys to full tool
// names for registry lookup.
type Kind string

const (
	// KindIngest ingests raw document files into structured source data.
	KindIngest Kind = "etl"

	// KindBlueprint synthesizes an analysis blueprint for a topic from its
	// accumulated source data.
	KindBlueprint Kind = "blueprint_gen"

	// KindGraphBuild extracts knowledge from source data into the graph.
	KindGraphBuild Kind = "graph_build"

	// KindMemory processes conversational history into the memory graph.
	KindMemory Kind = "memory_graph_build"

	// KindKnowledge builds knowledge blocks directly from files.
	KindKnowledge Kind = "knowledge_builder"
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}

// Tool is a self-contained unit of work with a uniform execute contract,
// resolvable by name through a registry.
//
// Execute reports domain failures through Result.Success; a non-nil error
// is reserved for unexpected faults (the orchestrator converts either into
// a failure result, so callers observe one outcome shape).
type Tool interface {
	// Name returns the unique full name the tool registers under.
	Name() string

	// Kind returns the tool's kind (also its short pipeline key).
	Kind() Kind

	// Description returns a human-readable one-line description.
	Description() string

	// Execute runs the tool against a synthesized input.
	Execute(ctx context.Context, in Input) (*Result, error)
}

// InputValidator is an optional interface for tools that validate their
// synthesized input before execution. Absence means "always valid".
type InputValidator interface {
	ValidateInput(in Input) bool
}

// Tracker is an optional interface for tools that record timing and
// execution metadata per invocation. The orchestrator prefers it over raw
// Execute, passing a composed correlation id of the form
// {pipelineExecutionID}_{toolName}. The contract observed by the
// orchestrator is unchanged.
type Tracker interface {
	ExecuteWithTracking(ctx context.Context, in Input, executionID string) (*Result, error)
}

// FuncTool wraps a function as a Tool. Convenient for tests and simple
// fixed-shape steps.
type FuncTool struct {
	name string
	kind Kind
	desc string
	fn   func(ctx context.Context, in Input) (*Result, error)
}

// NewFuncTool creates a tool that executes the given function.
func NewFuncTool(name string, kind Kind, fn func(ctx context.Context, in Input) (*Result, error)) *FuncTool {
	return &FuncTool{name: name, kind: kind, fn: fn}
}

// WithDescription sets the description and returns the tool for chaining.
func (t *FuncTool) WithDescription(desc string) *FuncTool {
	t.desc = desc
	return t
}

// Name returns the tool's registered name.
func (t *FuncTool) Name() string { return t.name }

// Kind returns the tool's kind.
func (t *FuncTool) Kind() Kind { return t.kind }

// Description returns the tool's description.
func (t *FuncTool) Description() string { return t.desc }

// Execute runs the wrapped function.
func (t *FuncTool) Execute(ctx context.Context, in Input) (*Result, error) {
	if t.fn == nil {
		return Success(nil), nil
	}
	return t.fn(ctx, in)
}

// Ensure interface compliance at compile time.
var _ Tool = (*FuncTool)(nil)
