package loom

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Result is the uniform outcome type returned by every tool and by the
// orchestrator itself. Exactly one of "success with usable data" or
// "failure with non-empty ErrorMessage" holds; Data may be nil on success
// for no-op outcomes.
type Result struct {
	// Success reports whether the operation succeeded.
	Success bool `json:"success"`

	// Data is the structured payload, tagged by the kind that produced it.
	Data ResultData `json:"data,omitempty"`

	// ErrorMessage describes the failure; required when Success is false.
	ErrorMessage string `json:"error,omitempty"`

	// Metadata is an optional side-channel (counts, timing, identifiers to
	// promote into the execution context).
	Metadata map[string]any `json:"metadata,omitempty"`

	// ExecutionID correlates this result with a pipeline invocation or a
	// per-step sub-invocation.
	ExecutionID string `json:"execution_id,omitempty"`

	// DurationSeconds is wall-clock execution time.
	DurationSeconds float64 `json:"duration_seconds"`
}

// Success creates a successful result with the given payload.
func Success(data ResultData) *Result {
	return &Result{Success: true, Data: data}
}

// Failure creates a failed result with the given error message.
func Failure(msg string) *Result {
	return &Result{Success: false, ErrorMessage: msg}
}

// Failuref creates a failed result with a formatted error message.
func Failuref(format string, args ...any) *Result {
	return Failure(fmt.Sprintf(format, args...))
}

// WithMetadata adds a metadata key and returns the result for chaining.
func (r *Result) WithMetadata(key string, value any) *Result {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
	return r
}

// MetadataString retrieves a metadata value as a string. Returns empty
// string when absent or not a string.
func (r *Result) MetadataString(key string) string {
	v, ok := r.Metadata[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// ResultData is the tagged union of per-kind result payloads, so consumers
// (context update, tests) can switch exhaustively instead of probing
// optional keys.
type ResultData interface {
	// ResultKind reports which tool kind produced this payload.
	ResultKind() Kind
}

// IngestData is produced by document ingestion.
type IngestData struct {
	SourceDataIDs  []string `json:"source_data_ids,omitempty"`
	ReusedExisting bool     `json:"reused_existing,omitempty"`
	Status         string   `json:"status,omitempty"`
}

// ResultKind reports the producing tool kind.
func (IngestData) ResultKind() Kind { return KindIngest }

// BlueprintData is produced by blueprint synthesis.
type BlueprintData struct {
	BlueprintID           string   `json:"blueprint_id,omitempty"`
	ContributingSourceIDs []string `json:"contributing_source_ids,omitempty"`
	ReusedExisting        bool     `json:"reused_existing,omitempty"`
	Status                string   `json:"status,omitempty"`
}

// ResultKind reports the producing tool kind.
func (BlueprintData) ResultKind() Kind { return KindBlueprint }

// GraphData is produced by graph building.
type GraphData struct {
	SourceDataIDs        []string `json:"source_data_ids,omitempty"`
	BlueprintID          string   `json:"blueprint_id,omitempty"`
	TripletsExtracted    int      `json:"triplets_extracted"`
	EntitiesCreated      int      `json:"entities_created"`
	RelationshipsCreated int      `json:"relationships_created"`
	Status               string   `json:"status,omitempty"`
}

// ResultKind reports the producing tool kind.
func (GraphData) ResultKind() Kind { return KindGraphBuild }

// MemoryData is produced by conversational memory processing.
type MemoryData struct {
	SourceDataID   string `json:"source_data_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	TopicName      string `json:"topic_name,omitempty"`
	MessageCount   int    `json:"message_count"`
	ReusedExisting bool   `json:"reused_existing,omitempty"`
}

// ResultKind reports the producing tool kind.
func (MemoryData) ResultKind() Kind { return KindMemory }

// KnowledgeData is produced by direct knowledge building.
type KnowledgeData struct {
	SourceIDs            []string `json:"source_ids,omitempty"`
	KnowledgeBlocksCount int      `json:"knowledge_blocks_count"`
}

// ResultKind reports the producing tool kind.
func (KnowledgeData) ResultKind() Kind { return KindKnowledge }

// PipelineData is the orchestrator's own success payload: all per-tool
// results in execution order, the resolved tool-name sequence, and total
// elapsed wall-clock seconds.
type PipelineData struct {
	Results         *ResultSet `json:"results,omitempty"`
	Pipeline        []string   `json:"pipeline"`
	DurationSeconds float64    `json:"duration_seconds"`
}

// ResultKind reports the producing tool kind (none: orchestrator-level).
func (PipelineData) ResultKind() Kind { return "" }

// FailureData is the orchestrator's failure payload: the failing tool's
// name, the synthesized input that was rejected (validation failures), and
// the results of the steps that succeeded before the failure.
type FailureData struct {
	FailedTool      string     `json:"failed_tool,omitempty"`
	ToolInput       Input      `json:"tool_input,omitempty"`
	PreviousResults *ResultSet `json:"previous_results,omitempty"`
}

// ResultKind reports the producing tool kind (none: orchestrator-level).
func (FailureData) ResultKind() Kind { return "" }

// ResultSet is an insertion-ordered map of per-tool results, keyed by tool
// name. Iteration via Names preserves execution order.
type ResultSet struct {
	order  []string
	byName map[string]*Result
}

// NewResultSet creates an empty result set.
func NewResultSet() *ResultSet {
	return &ResultSet{byName: make(map[string]*Result)}
}

// Add records a result under the given tool name, preserving order. A
// repeated name overwrites the value but keeps the original position.
func (s *ResultSet) Add(name string, r *Result) {
	if _, exists := s.byName[name]; !exists {
		s.order = append(s.order, name)
	}
	s.byName[name] = r
}

// Get returns the result recorded under the given tool name.
func (s *ResultSet) Get(name string) (*Result, bool) {
	r, ok := s.byName[name]
	return r, ok
}

// Names returns the tool names in execution order.
func (s *ResultSet) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of recorded results.
func (s *ResultSet) Len() int {
	return len(s.order)
}

// MarshalJSON renders the set as a JSON object keyed by tool name, keys in
// execution order. Without it the unexported fields would serialize as {}
// and CLI consumers would never see the per-tool results.
func (s *ResultSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(s.byName[name])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Clone returns a shallow copy of the set (results are shared, ordering
// and membership are independent).
func (s *ResultSet) Clone() *ResultSet {
	out := NewResultSet()
	for _, name := range s.order {
		out.Add(name, s.byName[name])
	}
	return out
}
