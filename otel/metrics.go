package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/loomworks/loom/orchestrator"
)

// MetricsHandler translates pipeline events into OpenTelemetry metrics.
// It records counters and histograms for tool executions, failures, and
// pipeline durations.
type MetricsHandler struct {
	toolExecutions   metric.Int64Counter
	toolFailures     metric.Int64Counter
	toolDuration     metric.Float64Histogram
	pipelineDuration metric.Float64Histogram
}

// NewMetricsHandler creates a MetricsHandler that uses the given meter to
// create instruments for recording pipeline metrics.
func NewMetricsHandler(meter metric.Meter) (*MetricsHandler, error) {
	toolExec, err := meter.Int64Counter("loom.tool.executions",
		metric.WithDescription("Number of tool executions"),
	)
	if err != nil {
		return nil, err
	}

	toolFail, err := meter.Int64Counter("loom.tool.failures",
		metric.WithDescription("Number of tool failures"),
	)
	if err != nil {
		return nil, err
	}

	toolDur, err := meter.Float64Histogram("loom.tool.duration",
		metric.WithDescription("Duration of tool execution in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	pipeDur, err := meter.Float64Histogram("loom.pipeline.duration",
		metric.WithDescription("Duration of pipeline execution in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsHandler{
		toolExecutions:   toolExec,
		toolFailures:     toolFail,
		toolDuration:     toolDur,
		pipelineDuration: pipeDur,
	}, nil
}

// Handle processes a pipeline event and records the appropriate metrics.
// It satisfies orchestrator.EventHandler.
func (h *MetricsHandler) Handle(e orchestrator.Event) {
	switch e.Kind {
	case orchestrator.EventToolFinished:
		h.handleToolFinished(e)
	case orchestrator.EventToolFailed:
		h.handleToolFailed(e)
	case orchestrator.EventPipelineFinished:
		h.handlePipelineFinished(e)
	}
}

// handleToolFinished increments the execution counter and records duration.
func (h *MetricsHandler) handleToolFinished(e orchestrator.Event) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("tool_kind", string(e.ToolKind)),
		attribute.String("tool_name", e.ToolName),
	)
	h.toolExecutions.Add(ctx, 1, attrs)
	h.toolDuration.Record(ctx, e.Elapsed.Seconds(), attrs)
}

// handleToolFailed increments the failure counter.
func (h *MetricsHandler) handleToolFailed(e orchestrator.Event) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("tool_kind", string(e.ToolKind)),
		attribute.String("tool_name", e.ToolName),
	)
	h.toolFailures.Add(ctx, 1, attrs)
}

// handlePipelineFinished records the pipeline execution duration.
func (h *MetricsHandler) handlePipelineFinished(e orchestrator.Event) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("execution_id", e.ExecutionID),
	)
	h.pipelineDuration.Record(ctx, e.Elapsed.Seconds(), attrs)
}
