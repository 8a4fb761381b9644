// Package store persists the durable state behind pipeline execution:
// ingested source data, extraction blueprints, graph triplets, memory
// batches, queued processing tasks, and tool execution records.
package store

import (
	"context"
	"time"
)

// Source data lifecycle statuses.
const (
	SourceStatusPending    = "pending"
	SourceStatusProcessing = "processing"
	SourceStatusCompleted  = "completed"
	SourceStatusFailed     = "failed"
)

// Blueprint lifecycle statuses.
const (
	BlueprintStatusGenerating = "generating"
	BlueprintStatusReady      = "ready"
	BlueprintStatusFailed     = "failed"
)

// Task lifecycle statuses.
const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// SourceData is one ingested document or text payload.
type SourceData struct {
	ID               string
	TopicName        string
	FilePath         string
	Link             string
	OriginalFilename string
	ContentHash      string
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Blueprint is a generated extraction plan for a topic, derived from the
// source documents that contributed to it.
type Blueprint struct {
	ID        string
	TopicName string
	SourceIDs []string
	Plan      string
	Status    string
	CreatedAt time.Time
}

// Triplet is one subject-predicate-object edge extracted from a source.
type Triplet struct {
	SourceDataID string
	BlueprintID  string
	Subject      string
	Predicate    string
	Object       string
}

// MemoryBatch records one processed slice of conversation history.
type MemoryBatch struct {
	SourceDataID string
	UserID       string
	TopicName    string
	MessageCount int
	CreatedAt    time.Time
}

// Task is a queued processing request, drained by the schedule daemon.
// Payload is the JSON-encoded execution context.
type Task struct {
	ID        string
	Payload   []byte
	Status    string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ExecutionRecord captures one tracked tool execution for later inspection.
type ExecutionRecord struct {
	ID              string
	ToolName        string
	Success         bool
	Error           string
	DurationSeconds float64
	Metadata        map[string]any
	CreatedAt       time.Time
}

// SourceStore persists ingested source data.
type SourceStore interface {
	CreateSource(ctx context.Context, src *SourceData) error
	GetSource(ctx context.Context, id string) (SourceData, bool, error)
	SourcesByTopic(ctx context.Context, topicName string) ([]SourceData, error)
	// FindSourceByHash locates an already-ingested document with the same
	// content within a topic, enabling reuse instead of reprocessing.
	FindSourceByHash(ctx context.Context, topicName, contentHash string) (SourceData, bool, error)
	UpdateSourceStatus(ctx context.Context, id, status string) error
	TopicHasSources(ctx context.Context, topicName string) (bool, error)
}

// BlueprintStore persists extraction blueprints.
type BlueprintStore interface {
	CreateBlueprint(ctx context.Context, bp *Blueprint) error
	GetBlueprint(ctx context.Context, id string) (Blueprint, bool, error)
	UpdateBlueprintStatus(ctx context.Context, id, status string) error
	// LatestReadyBlueprintID returns the most recent ready blueprint for a
	// topic, or empty string when none exists.
	LatestReadyBlueprintID(ctx context.Context, topicName string) (string, error)
}

// GraphStore persists extracted triplets.
type GraphStore interface {
	AddTriplets(ctx context.Context, triplets []Triplet) error
	TripletsBySource(ctx context.Context, sourceDataID string) ([]Triplet, error)
	CountTripletsByTopic(ctx context.Context, topicName string) (int, error)
}

// MemoryStore persists processed conversation batches.
type MemoryStore interface {
	CreateMemoryBatch(ctx context.Context, batch *MemoryBatch) error
	MemoryBatchBySource(ctx context.Context, sourceID string) (MemoryBatch, bool, error)
}

// TaskStore is the queue drained by the schedule daemon.
type TaskStore interface {
	EnqueueTask(ctx context.Context, task *Task) error
	PendingTasks(ctx context.Context, limit int) ([]Task, error)
	MarkTask(ctx context.Context, id, status, errMsg string) error
}

// RecordStore persists execution records written by tracked tools.
type RecordStore interface {
	SaveExecution(ctx context.Context, rec ExecutionRecord) error
	GetExecution(ctx context.Context, id string) (ExecutionRecord, bool, error)
	RecentExecutions(ctx context.Context, limit int) ([]ExecutionRecord, error)
}
