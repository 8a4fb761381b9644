package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/config"
	"github.com/loomworks/loom/llm"
	"github.com/loomworks/loom/store"
)

var memoryInputSchema = mustSchema(`{
	"type": "object",
	"properties": {
		"chat_messages": {"type": "array", "minItems": 1},
		"user_id": {"type": "string", "minLength": 1}
	},
	"required": ["chat_messages", "user_id"]
}`)

const memoryInstructions = "You extract personal memory facts from conversations. " +
	"Output one fact per line as subject|predicate|object, with the user as " +
	"subject where applicable. Output nothing else."

// MemoryGraphBuild processes conversational history into a per-user
// memory graph. A batch already processed under the same source id is
// reused unless regeneration is forced.
type MemoryGraphBuild struct {
	memory store.MemoryStore
	graph  store.GraphStore
	client llm.Client
	model  string
	logger *slog.Logger
	newID  func() string
	schema *gojsonschema.Schema
}

// NewMemoryGraphBuild creates the memory graph tool.
func NewMemoryGraphBuild(memory store.MemoryStore, graph store.GraphStore, client llm.Client, model string, logger *slog.Logger) *MemoryGraphBuild {
	return &MemoryGraphBuild{
		memory: memory,
		graph:  graph,
		client: client,
		model:  model,
		logger: defaultLogger(logger),
		newID:  uuid.NewString,
		schema: memoryInputSchema,
	}
}

// Name returns the tool's registered name.
func (t *MemoryGraphBuild) Name() string { return config.ToolMemoryGraphBuild }

// Kind returns the tool's kind.
func (t *MemoryGraphBuild) Kind() loom.Kind { return loom.KindMemory }

// Description returns a one-line description.
func (t *MemoryGraphBuild) Description() string {
	return "Builds a personal memory graph from conversation history"
}

// ValidateInput requires messages and a user identifier.
func (t *MemoryGraphBuild) ValidateInput(in loom.Input) bool {
	m, ok := in.(loom.MemoryInput)
	if !ok {
		return false
	}
	doc := map[string]any{}
	if len(m.ChatMessages) > 0 {
		msgs := make([]any, len(m.ChatMessages))
		for i, msg := range m.ChatMessages {
			msgs[i] = map[string]any{"role": msg.Role, "content": msg.Content}
		}
		doc["chat_messages"] = msgs
	}
	if m.UserID != "" {
		doc["user_id"] = m.UserID
	}
	return schemaValid(t.schema, doc, t.logger)
}

// Execute extracts memory facts from the conversation and persists them.
func (t *MemoryGraphBuild) Execute(ctx context.Context, in loom.Input) (*loom.Result, error) {
	input, ok := in.(loom.MemoryInput)
	if !ok {
		return loom.Failuref("unexpected input type %T", in), nil
	}

	sourceID := input.SourceID
	if sourceID != "" && !input.ForceRegenerate {
		existing, found, err := t.memory.MemoryBatchBySource(ctx, sourceID)
		if err != nil {
			return nil, fmt.Errorf("checking for existing memory batch: %w", err)
		}
		if found {
			t.logger.Info("reusing processed memory batch",
				"source_id", sourceID, "user_id", existing.UserID)
			return loom.Success(loom.MemoryData{
				SourceDataID:   existing.SourceDataID,
				UserID:         existing.UserID,
				TopicName:      existing.TopicName,
				MessageCount:   existing.MessageCount,
				ReusedExisting: true,
			}), nil
		}
	}
	if sourceID == "" {
		sourceID = t.newID()
	}

	resp, err := t.client.Complete(ctx, llm.Request{
		Model:        t.model,
		Instructions: memoryInstructions,
		Prompt:       transcript(input.UserID, input.ChatMessages),
	})
	if err != nil {
		return nil, fmt.Errorf("extracting memory facts: %w", err)
	}

	var triplets []store.Triplet
	for _, tr := range parseTriplets(resp.Text) {
		triplets = append(triplets, store.Triplet{
			SourceDataID: sourceID,
			Subject:      tr[0],
			Predicate:    tr[1],
			Object:       tr[2],
		})
	}
	if err := t.graph.AddTriplets(ctx, triplets); err != nil {
		return nil, fmt.Errorf("persisting memory triplets: %w", err)
	}

	batch := &store.MemoryBatch{
		SourceDataID: sourceID,
		UserID:       input.UserID,
		MessageCount: len(input.ChatMessages),
	}
	if err := t.memory.CreateMemoryBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("persisting memory batch: %w", err)
	}
	t.logger.Info("memory batch processed",
		"source_id", sourceID, "user_id", input.UserID, "facts", len(triplets))

	return loom.Success(loom.MemoryData{
		SourceDataID: sourceID,
		UserID:       input.UserID,
		MessageCount: len(input.ChatMessages),
	}), nil
}

func transcript(userID string, messages []loom.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User: %s\nConversation:\n", userID)
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}

var (
	_ loom.Tool           = (*MemoryGraphBuild)(nil)
	_ loom.InputValidator = (*MemoryGraphBuild)(nil)
)
