package loom

// TargetType selects the destination domain for a processing request.
type TargetType string

const (
	// TargetKnowledgeGraph routes documents into the shared knowledge graph.
	TargetKnowledgeGraph TargetType = "knowledge_graph"

	// TargetPersonalMemory routes dialogue into a per-user memory graph.
	TargetPersonalMemory TargetType = "personal_memory"

	// TargetKnowledgeBuild routes files directly into knowledge blocks.
	TargetKnowledgeBuild TargetType = "knowledge_build"
)

// InputType classifies the shape of the request payload.
type InputType string

const (
	InputDocument InputType = "document"
	InputDialogue InputType = "dialogue"
	InputText     InputType = "text"
	InputBuild    InputType = "build"
)

// Message is a single chat-style message from a conversation history.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// FileRef describes one uploaded file in a batch request.
type FileRef struct {
	Path        string         `json:"path" yaml:"path"`
	Name        string         `json:"filename,omitempty" yaml:"filename,omitempty"`
	Link        string         `json:"link,omitempty" yaml:"link,omitempty"`
	ContentType string         `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ProcessStrategy is an optional caller-supplied override of pipeline
// selection: an explicit ordered list of tool keys, plus a flag to append
// the knowledge builder stage.
type ProcessStrategy struct {
	Pipeline       []string `json:"pipeline,omitempty" yaml:"pipeline,omitempty"`
	KnowledgeBuild bool     `json:"knowledge_build,omitempty" yaml:"knowledge_build,omitempty"`
}

// Context is the evolving state threaded through a pipeline. The caller
// seeds it; after each successful step the orchestrator derives the next
// context from a copy, so steps never observe each other's mutations
// except through that explicit merge.
//
// All fields are optional; which ones a given tool kind reads is decided
// by the orchestrator's per-kind input synthesis.
type Context struct {
	TargetType TargetType     `json:"target_type,omitempty" yaml:"target_type,omitempty"`
	TopicName  string         `json:"topic_name,omitempty" yaml:"topic_name,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// Document ingestion fields. A non-empty Files list selects the batch
	// input shape; otherwise the single-file fields apply.
	Files            []FileRef `json:"files,omitempty" yaml:"files,omitempty"`
	FilePath         string    `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	Link             string    `json:"link,omitempty" yaml:"link,omitempty"`
	OriginalFilename string    `json:"original_filename,omitempty" yaml:"original_filename,omitempty"`

	// Raw text input (selects the direct text-to-graph path when no files
	// are present).
	Input string `json:"input,omitempty" yaml:"input,omitempty"`

	// Conversational memory fields.
	ChatMessages []Message `json:"chat_messages,omitempty" yaml:"chat_messages,omitempty"`
	UserID       string    `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	SourceID     string    `json:"source_id,omitempty" yaml:"source_id,omitempty"`

	// Identifiers accumulated across pipeline steps. SourceDataID is a
	// convenience mirror set when exactly one identifier was produced by
	// the most recent ingestion step.
	SourceDataIDs []string `json:"source_data_ids,omitempty" yaml:"source_data_ids,omitempty"`
	SourceDataID  string   `json:"source_data_id,omitempty" yaml:"source_data_id,omitempty"`
	BlueprintID   string   `json:"blueprint_id,omitempty" yaml:"blueprint_id,omitempty"`

	// ForceRegenerate requests reprocessing even when prior results exist.
	// Retry-after-failure is the caller's responsibility and goes through
	// this flag; nothing is retried automatically.
	ForceRegenerate bool `json:"force_regenerate,omitempty" yaml:"force_regenerate,omitempty"`

	// IsNewTopic overrides topic-existence inference when non-nil.
	IsNewTopic *bool `json:"is_new_topic,omitempty" yaml:"is_new_topic,omitempty"`

	// Strategy is the optional explicit pipeline override.
	Strategy *ProcessStrategy `json:"process_strategy,omitempty" yaml:"process_strategy,omitempty"`
}

// NewContext creates an empty execution context.
func NewContext() *Context {
	return &Context{Metadata: make(map[string]any)}
}

// Clone returns a copy of the context. Maps and slices are copied so that
// the clone and the original cannot mutate each other's view; values
// inside Metadata may still reference shared memory.
func (c *Context) Clone() *Context {
	if c == nil {
		return nil
	}

	out := *c

	if c.Metadata != nil {
		out.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	if c.Files != nil {
		out.Files = make([]FileRef, len(c.Files))
		copy(out.Files, c.Files)
	}
	if c.ChatMessages != nil {
		out.ChatMessages = make([]Message, len(c.ChatMessages))
		copy(out.ChatMessages, c.ChatMessages)
	}
	if c.SourceDataIDs != nil {
		out.SourceDataIDs = make([]string, len(c.SourceDataIDs))
		copy(out.SourceDataIDs, c.SourceDataIDs)
	}
	if c.IsNewTopic != nil {
		v := *c.IsNewTopic
		out.IsNewTopic = &v
	}
	if c.Strategy != nil {
		s := *c.Strategy
		if c.Strategy.Pipeline != nil {
			s.Pipeline = make([]string, len(c.Strategy.Pipeline))
			copy(s.Pipeline, c.Strategy.Pipeline)
		}
		out.Strategy = &s
	}

	return &out
}

// WithTopic sets the topic name and returns the context for chaining.
func (c *Context) WithTopic(name string) *Context {
	c.TopicName = name
	return c
}

// WithTarget sets the target type and returns the context for chaining.
func (c *Context) WithTarget(t TargetType) *Context {
	c.TargetType = t
	return c
}

// WithFiles sets the file list and returns the context for chaining.
func (c *Context) WithFiles(files ...FileRef) *Context {
	c.Files = files
	return c
}
