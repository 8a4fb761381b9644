package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/store"
)

// Tracked wraps a tool with per-invocation timing and persistence of
// execution records. The orchestrator prefers the tracked entry point,
// passing its composed correlation id; direct Execute calls generate one.
type Tracked struct {
	tool    loom.Tool
	records store.RecordStore
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// NewTracked wraps a tool. A nil record store disables persistence but
// keeps id stamping and timing.
func NewTracked(tool loom.Tool, records store.RecordStore, logger *slog.Logger) *Tracked {
	return &Tracked{
		tool:    tool,
		records: records,
		logger:  defaultLogger(logger),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Name returns the wrapped tool's name.
func (t *Tracked) Name() string { return t.tool.Name() }

// Kind returns the wrapped tool's kind.
func (t *Tracked) Kind() loom.Kind { return t.tool.Kind() }

// Description returns the wrapped tool's description.
func (t *Tracked) Description() string { return t.tool.Description() }

// ValidateInput delegates to the wrapped tool when it validates.
func (t *Tracked) ValidateInput(in loom.Input) bool {
	if v, ok := t.tool.(loom.InputValidator); ok {
		return v.ValidateInput(in)
	}
	return true
}

// Execute runs with a generated execution id.
func (t *Tracked) Execute(ctx context.Context, in loom.Input) (*loom.Result, error) {
	return t.ExecuteWithTracking(ctx, in, t.newID())
}

// ExecuteWithTracking runs the wrapped tool, stamps timing and id onto the
// result, and persists an execution record. Persistence failures are
// logged, never surfaced; the tool's own outcome wins.
func (t *Tracked) ExecuteWithTracking(ctx context.Context, in loom.Input, executionID string) (*loom.Result, error) {
	start := t.now()
	res, err := t.tool.Execute(ctx, in)
	elapsed := t.now().Sub(start)

	rec := store.ExecutionRecord{
		ID:              executionID,
		ToolName:        t.tool.Name(),
		DurationSeconds: elapsed.Seconds(),
	}
	switch {
	case err != nil:
		rec.Error = err.Error()
	case res == nil:
		rec.Error = "tool returned no result"
	default:
		rec.Success = res.Success
		rec.Error = res.ErrorMessage
		rec.Metadata = res.Metadata
	}
	t.save(ctx, rec)

	if err != nil || res == nil {
		return res, err
	}
	res.ExecutionID = executionID
	res.DurationSeconds = elapsed.Seconds()
	return res, nil
}

func (t *Tracked) save(ctx context.Context, rec store.ExecutionRecord) {
	if t.records == nil {
		return
	}
	if err := t.records.SaveExecution(ctx, rec); err != nil {
		t.logger.Warn("saving execution record failed",
			"execution_id", rec.ID, "tool", rec.ToolName, "error", err)
	}
}

var (
	_ loom.Tool           = (*Tracked)(nil)
	_ loom.Tracker        = (*Tracked)(nil)
	_ loom.InputValidator = (*Tracked)(nil)
)
