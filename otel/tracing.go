// Package otel provides OpenTelemetry integration for pipeline events.
package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/loomworks/loom/orchestrator"
)

// TracingHandler translates pipeline events into OpenTelemetry spans.
// It maintains maps of active pipeline and tool spans, creating and ending
// them based on event kind.
type TracingHandler struct {
	tracer trace.Tracer

	mu            sync.RWMutex
	pipelineSpans map[string]trace.Span      // executionID -> span
	pipelineCtxs  map[string]context.Context // executionID -> context (for child spans)
	toolSpans     map[string]trace.Span      // executionID:toolName -> span
}

// NewTracingHandler creates a new TracingHandler that uses the given tracer
// to create spans from pipeline events.
func NewTracingHandler(tracer trace.Tracer) *TracingHandler {
	return &TracingHandler{
		tracer:        tracer,
		pipelineSpans: make(map[string]trace.Span),
		pipelineCtxs:  make(map[string]context.Context),
		toolSpans:     make(map[string]trace.Span),
	}
}

// Handle processes a pipeline event and creates or ends spans accordingly.
// It satisfies orchestrator.EventHandler.
func (h *TracingHandler) Handle(e orchestrator.Event) {
	switch e.Kind {
	case orchestrator.EventPipelineStarted:
		h.handlePipelineStarted(e)
	case orchestrator.EventToolStarted:
		h.handleToolStarted(e)
	case orchestrator.EventToolFinished:
		h.handleToolFinished(e)
	case orchestrator.EventToolFailed:
		h.handleToolFailed(e)
	case orchestrator.EventPipelineFinished:
		h.handlePipelineFinished(e)
	}
}

// handlePipelineStarted creates a root span for the execution.
func (h *TracingHandler) handlePipelineStarted(e orchestrator.Event) {
	ctx, span := h.tracer.Start(context.Background(), "pipeline:"+e.ExecutionID,
		trace.WithAttributes(
			attribute.String("loom.execution_id", e.ExecutionID),
		),
		trace.WithTimestamp(e.Time),
	)

	h.mu.Lock()
	h.pipelineSpans[e.ExecutionID] = span
	h.pipelineCtxs[e.ExecutionID] = ctx
	h.mu.Unlock()
}

// handleToolStarted creates a child span for the tool under the pipeline span.
func (h *TracingHandler) handleToolStarted(e orchestrator.Event) {
	h.mu.RLock()
	parentCtx, ok := h.pipelineCtxs[e.ExecutionID]
	h.mu.RUnlock()

	if !ok {
		// No parent pipeline span; start from background context.
		parentCtx = context.Background()
	}

	_, span := h.tracer.Start(parentCtx, "tool:"+e.ToolName,
		trace.WithAttributes(
			attribute.String("loom.execution_id", e.ExecutionID),
			attribute.String("loom.tool_name", e.ToolName),
			attribute.String("loom.tool_kind", string(e.ToolKind)),
		),
		trace.WithTimestamp(e.Time),
	)

	h.mu.Lock()
	h.toolSpans[e.ExecutionID+":"+e.ToolName] = span
	h.mu.Unlock()
}

func (h *TracingHandler) handleToolFinished(e orchestrator.Event) {
	span, ok := h.takeToolSpan(e)
	if !ok {
		return
	}
	span.SetAttributes(attribute.String("loom.duration", e.Elapsed.String()))
	span.SetStatus(codes.Ok, "")
	span.End(trace.WithTimestamp(e.Time))
}

func (h *TracingHandler) handleToolFailed(e orchestrator.Event) {
	span, ok := h.takeToolSpan(e)
	if !ok {
		return
	}
	errMsg := payloadString(e, "error")
	if errMsg == "" {
		errMsg = payloadString(e, "reason")
	}
	if errMsg == "" {
		errMsg = "unknown error"
	}
	span.SetStatus(codes.Error, errMsg)
	span.RecordError(spanError(errMsg), trace.WithTimestamp(e.Time))
	span.End(trace.WithTimestamp(e.Time))
}

// handlePipelineFinished ends the root span with a status derived from the
// event payload.
func (h *TracingHandler) handlePipelineFinished(e orchestrator.Event) {
	h.mu.Lock()
	span, ok := h.pipelineSpans[e.ExecutionID]
	if ok {
		delete(h.pipelineSpans, e.ExecutionID)
		delete(h.pipelineCtxs, e.ExecutionID)
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	status := payloadString(e, "status")

	span.SetAttributes(
		attribute.String("loom.duration", e.Elapsed.String()),
		attribute.String("loom.status", status),
	)

	if status == "failed" {
		errMsg := payloadString(e, "error")
		if errMsg == "" {
			errMsg = "pipeline failed"
		}
		span.SetStatus(codes.Error, errMsg)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End(trace.WithTimestamp(e.Time))
}

func (h *TracingHandler) takeToolSpan(e orchestrator.Event) (trace.Span, bool) {
	key := e.ExecutionID + ":" + e.ToolName
	h.mu.Lock()
	span, ok := h.toolSpans[key]
	if ok {
		delete(h.toolSpans, key)
	}
	h.mu.Unlock()
	return span, ok
}

// ActiveSpanContext returns the SpanContext for the active tool span of the
// given execution. Returns an empty SpanContext if not found.
func (h *TracingHandler) ActiveSpanContext(executionID, toolName string) trace.SpanContext {
	h.mu.RLock()
	span, ok := h.toolSpans[executionID+":"+toolName]
	h.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}

// ActivePipelineSpanContext returns the SpanContext for the active pipeline
// span of the given execution. Returns an empty SpanContext if not found.
func (h *TracingHandler) ActivePipelineSpanContext(executionID string) trace.SpanContext {
	h.mu.RLock()
	span, ok := h.pipelineSpans[executionID]
	h.mu.RUnlock()

	if !ok {
		return trace.SpanContext{}
	}
	return span.SpanContext()
}

func payloadString(e orchestrator.Event, key string) string {
	if e.Payload == nil {
		return ""
	}
	if v, ok := e.Payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// spanError is a simple error type for recording span errors.
type spanError string

func (e spanError) Error() string { return string(e) }
