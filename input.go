package loom

// Input is the value handed to a tool's Execute. It is a closed set of
// tagged variants, one per tool kind, so per-kind input synthesis is a
// total function over the variant rather than a probe into an open map.
type Input interface {
	// InputKind reports which tool kind this input shape belongs to.
	InputKind() Kind
}

// IngestInput is the input shape for document ingestion. A non-empty Files
// list means batch processing; otherwise the single-file fields apply.
// The presence of files, not an explicit mode flag, selects the shape.
type IngestInput struct {
	// Batch shape.
	Files           []FileRef
	RequestMetadata map[string]any

	// Single-file shape.
	FilePath         string
	Metadata         map[string]any
	Link             string
	OriginalFilename string

	TopicName       string
	ForceRegenerate bool
}

// Batch reports whether this input uses the batch shape.
func (in IngestInput) Batch() bool { return len(in.Files) > 0 }

// InputKind reports the tool kind this input belongs to.
func (in IngestInput) InputKind() Kind { return KindIngest }

// BlueprintInput is the input shape for blueprint synthesis. A nil
// SourceDataIDs means topic-based processing over all of the topic's
// source data.
type BlueprintInput struct {
	TopicName       string
	SourceDataIDs   []string
	ForceRegenerate bool
}

// InputKind reports the tool kind this input belongs to.
func (in BlueprintInput) InputKind() Kind { return KindBlueprint }

// GraphBuildShape distinguishes the three mutually exclusive graph-build
// input shapes.
type GraphBuildShape string

const (
	// GraphShapeSingle processes one source document, with an optional
	// blueprint.
	GraphShapeSingle GraphBuildShape = "single"

	// GraphShapeBatch processes multiple source documents against a
	// required blueprint.
	GraphShapeBatch GraphBuildShape = "batch"

	// GraphShapeTopic processes everything under a topic.
	GraphShapeTopic GraphBuildShape = "topic"
)

// GraphBuildInput is the input shape for graph building. Exactly one of
// the three shapes holds; Shape reports which.
type GraphBuildInput struct {
	SourceDataID    string   // single shape
	SourceDataIDs   []string // batch shape, requires BlueprintID
	TopicName       string   // topic shape
	BlueprintID     string
	ForceRegenerate bool
}

// Shape reports which of the three graph-build shapes this input uses.
func (in GraphBuildInput) Shape() GraphBuildShape {
	switch {
	case in.SourceDataID != "":
		return GraphShapeSingle
	case len(in.SourceDataIDs) > 0:
		return GraphShapeBatch
	default:
		return GraphShapeTopic
	}
}

// InputKind reports the tool kind this input belongs to.
func (in GraphBuildInput) InputKind() Kind { return KindGraphBuild }

// MemoryInput is the input shape for conversational memory processing:
// the raw message list and user identifier pass straight through.
type MemoryInput struct {
	ChatMessages    []Message
	UserID          string
	SourceID        string
	ForceRegenerate bool
}

// InputKind reports the tool kind this input belongs to.
func (in MemoryInput) InputKind() Kind { return KindMemory }

// KnowledgeInput is the input shape for direct knowledge building. Files
// selects batch mode; otherwise SourcePath is processed on its own.
type KnowledgeInput struct {
	Files      []FileRef
	SourcePath string
	Attributes map[string]any
}

// InputKind reports the tool kind this input belongs to.
func (in KnowledgeInput) InputKind() Kind { return KindKnowledge }

// RawInput is the identity fallback for tool kinds the orchestrator does
// not know how to shape: the context passes through unchanged, which keeps
// forward-compatible kinds working without specialized synthesis.
type RawInput struct {
	Context *Context
}

// InputKind reports the tool kind this input belongs to.
func (in RawInput) InputKind() Kind { return "" }

// Ensure every variant satisfies Input at compile time.
var (
	_ Input = IngestInput{}
	_ Input = BlueprintInput{}
	_ Input = GraphBuildInput{}
	_ Input = MemoryInput{}
	_ Input = KnowledgeInput{}
	_ Input = RawInput{}
)
