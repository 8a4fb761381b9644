// Package orchestrator selects and runs ordered sequences of tools against
// a shared, evolving context, short-circuiting on first failure and
// threading each step's output into the next step's input.
//
// Execution is strictly sequential: one tool runs to completion before the
// next begins. Nothing is retried automatically; recovery is the caller's
// decision (typically re-invoking with ForceRegenerate).
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/config"
	"github.com/loomworks/loom/registry"
)

// BlueprintLookup resolves the latest ready blueprint for a topic. The
// orchestrator consults it during graph-build input synthesis when the
// context carries no explicit blueprint id.
type BlueprintLookup interface {
	LatestReadyBlueprintID(ctx context.Context, topicName string) (string, error)
}

// TopicLookup reports whether a topic already has ingested source data,
// used to infer whether a request targets a new topic.
type TopicLookup interface {
	TopicHasSources(ctx context.Context, topicName string) (bool, error)
}

// Orchestrator executes tool pipelines. It holds a reference to the tool
// registry and the static pipeline tables; both are treated as read-only
// for the orchestrator's lifetime.
type Orchestrator struct {
	registry   *registry.Registry
	cfg        *config.Config
	blueprints BlueprintLookup
	topics     TopicLookup
	handler    EventHandler
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler sets a handler receiving pipeline and tool lifecycle
// events (for logging, tracing, metrics).
func WithEventHandler(h EventHandler) Option {
	return func(o *Orchestrator) { o.handler = h }
}

// WithBlueprintLookup sets the external blueprint resolution collaborator.
func WithBlueprintLookup(l BlueprintLookup) Option {
	return func(o *Orchestrator) { o.blueprints = l }
}

// WithTopicLookup sets the external topic-existence collaborator.
func WithTopicLookup(l TopicLookup) Option {
	return func(o *Orchestrator) { o.topics = l }
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides execution id generation (for testing).
func WithIDGenerator(gen func() string) Option {
	return func(o *Orchestrator) {
		if gen != nil {
			o.newID = gen
		}
	}
}

// New creates an orchestrator over the given registry and pipeline tables.
// A nil cfg uses config.Default().
func New(reg *registry.Registry, cfg *config.Config, opts ...Option) *Orchestrator {
	if cfg == nil {
		cfg = config.Default()
	}
	o := &Orchestrator{
		registry: reg,
		cfg:      cfg,
		logger:   slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ExecutePipeline resolves a predefined pipeline name to its ordered tool
// sequence and executes it. An unknown pipeline name fails immediately
// without executing anything.
func (o *Orchestrator) ExecutePipeline(ctx context.Context, pipelineName string, pc *loom.Context, executionID string) *loom.Result {
	return o.executePipeline(ctx, pipelineName, pc, false, executionID)
}

func (o *Orchestrator) executePipeline(ctx context.Context, pipelineName string, pc *loom.Context, appendKnowledge bool, executionID string) *loom.Result {
	if executionID == "" {
		executionID = o.newID()
	}

	keys, ok := o.cfg.Pipelines[pipelineName]
	if !ok {
		return o.failAt(o.now(), executionID, fmt.Sprintf("pipeline %q not found", pipelineName), nil)
	}

	tools := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		name, ok := o.cfg.ToolName(key)
		if !ok {
			return o.failAt(o.now(), executionID, fmt.Sprintf("pipeline %q references unknown tool key %q", pipelineName, key), nil)
		}
		tools = append(tools, name)
	}
	if appendKnowledge && !containsString(tools, config.ToolKnowledgeBuilder) {
		tools = append(tools, config.ToolKnowledgeBuilder)
	}

	o.logger.Info("executing pipeline",
		"pipeline", pipelineName,
		"tools", tools,
		"execution_id", executionID)

	return o.ExecuteCustomPipeline(ctx, tools, pc, executionID)
}

// ExecuteCustomPipeline executes the given tool names in order against the
// context. It is the execution engine behind every pipeline entry point.
//
// Failure semantics: a tool missing from the registry is a configuration
// fault and carries no partial results; validation and execution failures
// carry the failing tool's name and the results of prior steps. Execution
// metadata (ExecutionID, DurationSeconds) is attached on every path.
func (o *Orchestrator) ExecuteCustomPipeline(ctx context.Context, toolNames []string, pc *loom.Context, executionID string) (result *loom.Result) {
	if executionID == "" {
		executionID = o.newID()
	}
	start := o.now()

	// Copy on entry: concurrent callers sharing a context value must never
	// observe each other's step mutations.
	pipelineCtx := pc.Clone()
	if pipelineCtx == nil {
		pipelineCtx = loom.NewContext()
	}

	results := loom.NewResultSet()
	var seq uint64
	emit := func(e Event) {
		if o.handler == nil {
			return
		}
		seq++
		e.Seq = seq
		o.handler(e)
	}

	// Faults in orchestration bookkeeping itself become a structured
	// failure result carrying elapsed duration and the correlation id.
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("pipeline execution panicked",
				"execution_id", executionID, "panic", r)
			result = o.failAt(start, executionID, fmt.Sprintf("pipeline execution failed: %v", r), nil)
			emit(o.finishedEvent(executionID, start, result))
		}
	}()

	o.logger.Info("starting pipeline execution",
		"execution_id", executionID, "tools", toolNames)
	emit(NewEvent(EventPipelineStarted, executionID).
		WithPayload("tools", append([]string{}, toolNames...)))

	for _, name := range toolNames {
		tool, ok := o.registry.Get(name)
		if !ok {
			// Configuration fault: fail the whole run with no partial
			// results, unlike later-step runtime failures.
			result = o.failAt(start, executionID, fmt.Sprintf("tool %q not found", name), nil)
			emit(o.finishedEvent(executionID, start, result))
			return result
		}
		kind := tool.Kind()

		in, err := o.prepareInput(ctx, kind, pipelineCtx, results)
		if err != nil {
			result = o.failAt(start, executionID,
				fmt.Sprintf("preparing input for tool %q: %v", name, err),
				loom.FailureData{FailedTool: name, PreviousResults: results.Clone()})
			emit(o.finishedEvent(executionID, start, result))
			return result
		}

		if v, ok := tool.(loom.InputValidator); ok && !v.ValidateInput(in) {
			emit(NewEvent(EventToolFailed, executionID).
				WithTool(name, kind).
				WithElapsed(o.now().Sub(start)).
				WithPayload("reason", "input validation failed"))
			result = o.failAt(start, executionID,
				fmt.Sprintf("tool %q failed: input validation failed", name),
				loom.FailureData{FailedTool: name, ToolInput: in})
			emit(o.finishedEvent(executionID, start, result))
			return result
		}

		toolStart := o.now()
		emit(NewEvent(EventToolStarted, executionID).
			WithTool(name, kind).
			WithElapsed(toolStart.Sub(start)))

		res, err := o.runTool(ctx, tool, in, executionID+"_"+name)
		if err != nil {
			res = loom.Failure(err.Error())
		}
		if res == nil {
			res = loom.Failure("tool returned no result")
		}

		if !res.Success {
			emit(NewEvent(EventToolFailed, executionID).
				WithTool(name, kind).
				WithElapsed(o.now().Sub(toolStart)).
				WithPayload("error", res.ErrorMessage))
			result = o.failAt(start, executionID,
				fmt.Sprintf("tool %q failed: %s", name, res.ErrorMessage),
				loom.FailureData{FailedTool: name, PreviousResults: results.Clone()})
			emit(o.finishedEvent(executionID, start, result))
			return result
		}

		results.Add(name, res)
		pipelineCtx = o.updateContext(kind, pipelineCtx, res)

		emit(NewEvent(EventToolFinished, executionID).
			WithTool(name, kind).
			WithElapsed(o.now().Sub(toolStart)))
		o.logger.Info("tool completed", "tool", name, "execution_id", executionID)
	}

	elapsed := o.now().Sub(start)
	pipeline := make([]string, len(toolNames))
	copy(pipeline, toolNames)

	result = &loom.Result{
		Success: true,
		Data: loom.PipelineData{
			Results:         results,
			Pipeline:        pipeline,
			DurationSeconds: elapsed.Seconds(),
		},
		ExecutionID:     executionID,
		DurationSeconds: elapsed.Seconds(),
	}

	o.logger.Info("pipeline execution completed",
		"execution_id", executionID, "duration_seconds", elapsed.Seconds())
	emit(o.finishedEvent(executionID, start, result))
	return result
}

// runTool executes a tool through its tracked variant when available, so
// correlation identifiers compose across pipeline steps; otherwise it
// wraps the raw Execute with timing and id stamping itself.
func (o *Orchestrator) runTool(ctx context.Context, t loom.Tool, in loom.Input, stepID string) (*loom.Result, error) {
	if tr, ok := t.(loom.Tracker); ok {
		return tr.ExecuteWithTracking(ctx, in, stepID)
	}

	start := o.now()
	res, err := t.Execute(ctx, in)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, nil
	}
	res.ExecutionID = stepID
	res.DurationSeconds = o.now().Sub(start).Seconds()
	return res, nil
}

// failAt builds a failure result with execution metadata attached. Every
// failure path goes through here so ExecutionID and DurationSeconds are
// present regardless of where the run stopped.
func (o *Orchestrator) failAt(start time.Time, executionID, msg string, data loom.ResultData) *loom.Result {
	r := loom.Failure(msg)
	r.ExecutionID = executionID
	r.DurationSeconds = o.now().Sub(start).Seconds()
	r.Data = data
	o.logger.Error("pipeline execution failed",
		"execution_id", executionID, "error", msg)
	return r
}

func (o *Orchestrator) finishedEvent(executionID string, start time.Time, res *loom.Result) Event {
	e := NewEvent(EventPipelineFinished, executionID).
		WithElapsed(o.now().Sub(start))
	if res.Success {
		return e.WithPayload("status", "completed")
	}
	return e.
		WithPayload("status", "failed").
		WithPayload("error", res.ErrorMessage)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
