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

var blueprintInputSchema = mustSchema(`{
	"type": "object",
	"properties": {
		"topic_name": {"type": "string", "minLength": 1},
		"source_data_ids": {"type": "array", "minItems": 1}
	},
	"anyOf": [
		{"required": ["topic_name"]},
		{"required": ["source_data_ids"]}
	]
}`)

const blueprintInstructions = "You design extraction blueprints for knowledge graphs. " +
	"Given a list of source documents, produce a concise plan naming the entity " +
	"types and relationship types worth extracting from them."

// BlueprintGeneration synthesizes an extraction blueprint for a topic from
// its accumulated source data. An existing ready blueprint is reused
// unless regeneration is forced.
type BlueprintGeneration struct {
	sources    store.SourceStore
	blueprints store.BlueprintStore
	client     llm.Client
	model      string
	logger     *slog.Logger
	newID      func() string
	schema     *gojsonschema.Schema
}

// NewBlueprintGeneration creates the blueprint tool.
func NewBlueprintGeneration(sources store.SourceStore, blueprints store.BlueprintStore, client llm.Client, model string, logger *slog.Logger) *BlueprintGeneration {
	return &BlueprintGeneration{
		sources:    sources,
		blueprints: blueprints,
		client:     client,
		model:      model,
		logger:     defaultLogger(logger),
		newID:      uuid.NewString,
		schema:     blueprintInputSchema,
	}
}

// Name returns the tool's registered name.
func (t *BlueprintGeneration) Name() string { return config.ToolBlueprintGeneration }

// Kind returns the tool's kind.
func (t *BlueprintGeneration) Kind() loom.Kind { return loom.KindBlueprint }

// Description returns a one-line description.
func (t *BlueprintGeneration) Description() string {
	return "Generates an extraction blueprint for a topic"
}

// ValidateInput requires a topic or accumulated source identifiers.
func (t *BlueprintGeneration) ValidateInput(in loom.Input) bool {
	bp, ok := in.(loom.BlueprintInput)
	if !ok {
		return false
	}
	doc := map[string]any{}
	if bp.TopicName != "" {
		doc["topic_name"] = bp.TopicName
	}
	if len(bp.SourceDataIDs) > 0 {
		ids := make([]any, len(bp.SourceDataIDs))
		for i, id := range bp.SourceDataIDs {
			ids[i] = id
		}
		doc["source_data_ids"] = ids
	}
	return schemaValid(t.schema, doc, t.logger)
}

// Execute reuses the latest ready blueprint when possible, otherwise
// generates a new plan from the contributing sources.
func (t *BlueprintGeneration) Execute(ctx context.Context, in loom.Input) (*loom.Result, error) {
	input, ok := in.(loom.BlueprintInput)
	if !ok {
		return loom.Failuref("unexpected input type %T", in), nil
	}

	if !input.ForceRegenerate && input.TopicName != "" {
		existing, err := t.blueprints.LatestReadyBlueprintID(ctx, input.TopicName)
		if err != nil {
			return nil, fmt.Errorf("looking up existing blueprint: %w", err)
		}
		if existing != "" {
			t.logger.Info("reusing existing blueprint",
				"blueprint_id", existing, "topic", input.TopicName)
			return loom.Success(loom.BlueprintData{
				BlueprintID:           existing,
				ContributingSourceIDs: input.SourceDataIDs,
				ReusedExisting:        true,
				Status:                store.BlueprintStatusReady,
			}).WithMetadata("topic_name", input.TopicName), nil
		}
	}

	ids := input.SourceDataIDs
	if len(ids) == 0 {
		srcs, err := t.sources.SourcesByTopic(ctx, input.TopicName)
		if err != nil {
			return nil, fmt.Errorf("listing topic sources: %w", err)
		}
		for _, s := range srcs {
			ids = append(ids, s.ID)
		}
	}
	if len(ids) == 0 {
		return loom.Failuref("no source data available for topic %q", input.TopicName), nil
	}

	prompt, err := t.buildPrompt(ctx, input.TopicName, ids)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Complete(ctx, llm.Request{
		Model:        t.model,
		Instructions: blueprintInstructions,
		Prompt:       prompt,
	})
	if err != nil {
		return nil, fmt.Errorf("generating blueprint: %w", err)
	}

	bp := &store.Blueprint{
		ID:        t.newID(),
		TopicName: input.TopicName,
		SourceIDs: ids,
		Plan:      resp.Text,
		Status:    store.BlueprintStatusReady,
	}
	if err := t.blueprints.CreateBlueprint(ctx, bp); err != nil {
		return nil, fmt.Errorf("persisting blueprint: %w", err)
	}
	t.logger.Info("blueprint generated",
		"blueprint_id", bp.ID, "topic", bp.TopicName, "sources", len(ids))

	return loom.Success(loom.BlueprintData{
		BlueprintID:           bp.ID,
		ContributingSourceIDs: ids,
		Status:                store.BlueprintStatusReady,
	}).WithMetadata("topic_name", input.TopicName), nil
}

func (t *BlueprintGeneration) buildPrompt(ctx context.Context, topic string, ids []string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\nSource documents:\n", topic)
	for _, id := range ids {
		src, found, err := t.sources.GetSource(ctx, id)
		if err != nil {
			return "", fmt.Errorf("loading source %s: %w", id, err)
		}
		if !found {
			continue
		}
		name := src.OriginalFilename
		if name == "" {
			name = src.FilePath
		}
		fmt.Fprintf(&b, "- %s\n", name)
	}
	return b.String(), nil
}

var (
	_ loom.Tool           = (*BlueprintGeneration)(nil)
	_ loom.InputValidator = (*BlueprintGeneration)(nil)
)
