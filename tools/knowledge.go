package tools

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/config"
	"github.com/loomworks/loom/extract"
	"github.com/loomworks/loom/store"
)

var knowledgeInputSchema = mustSchema(`{
	"type": "object",
	"properties": {
		"files": {"type": "array", "minItems": 1},
		"source_path": {"type": "string", "minLength": 1}
	},
	"anyOf": [
		{"required": ["files"]},
		{"required": ["source_path"]}
	]
}`)

// KnowledgeBuilder builds knowledge blocks directly from files, skipping
// graph construction: each extracted section becomes one block.
type KnowledgeBuilder struct {
	sources    store.SourceStore
	extractors []extract.Extractor
	logger     *slog.Logger
	newID      func() string
	schema     *gojsonschema.Schema
}

// NewKnowledgeBuilder creates the knowledge building tool.
func NewKnowledgeBuilder(sources store.SourceStore, logger *slog.Logger) *KnowledgeBuilder {
	return &KnowledgeBuilder{
		sources:    sources,
		extractors: extract.Default(),
		logger:     defaultLogger(logger),
		newID:      uuid.NewString,
		schema:     knowledgeInputSchema,
	}
}

// Name returns the tool's registered name.
func (t *KnowledgeBuilder) Name() string { return config.ToolKnowledgeBuilder }

// Kind returns the tool's kind.
func (t *KnowledgeBuilder) Kind() loom.Kind { return loom.KindKnowledge }

// Description returns a one-line description.
func (t *KnowledgeBuilder) Description() string {
	return "Builds knowledge blocks directly from files"
}

// ValidateInput requires files or a source path.
func (t *KnowledgeBuilder) ValidateInput(in loom.Input) bool {
	k, ok := in.(loom.KnowledgeInput)
	if !ok {
		return false
	}
	doc := map[string]any{}
	if len(k.Files) > 0 {
		files := make([]any, len(k.Files))
		for i, f := range k.Files {
			files[i] = map[string]any{"path": f.Path}
		}
		doc["files"] = files
	}
	if k.SourcePath != "" {
		doc["source_path"] = k.SourcePath
	}
	return schemaValid(t.schema, doc, t.logger)
}

// Execute extracts each file into sections and persists the sources.
func (t *KnowledgeBuilder) Execute(ctx context.Context, in loom.Input) (*loom.Result, error) {
	input, ok := in.(loom.KnowledgeInput)
	if !ok {
		return loom.Failuref("unexpected input type %T", in), nil
	}

	paths := make([]loom.FileRef, 0, len(input.Files)+1)
	paths = append(paths, input.Files...)
	if len(paths) == 0 {
		paths = append(paths, loom.FileRef{Path: input.SourcePath})
	}

	topic, _ := input.Attributes["topic_name"].(string)

	var (
		ids    []string
		blocks int
	)
	for _, f := range paths {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return loom.Failuref("reading file %s: %v", f.Path, err), nil
		}
		doc, err := extract.ForFile(f.Path, t.extractors...).Extract(f.Path, data)
		if err != nil {
			return loom.Failuref("extracting %s: %v", f.Path, err), nil
		}
		blocks += len(doc.Sections)

		src := &store.SourceData{
			ID:               t.newID(),
			TopicName:        topic,
			FilePath:         f.Path,
			Link:             f.Link,
			OriginalFilename: f.Name,
			ContentHash:      doc.Hash,
			Status:           store.SourceStatusCompleted,
		}
		if err := t.sources.CreateSource(ctx, src); err != nil {
			return nil, fmt.Errorf("persisting source data: %w", err)
		}
		ids = append(ids, src.ID)
	}
	t.logger.Info("knowledge blocks built", "sources", len(ids), "blocks", blocks)

	return loom.Success(loom.KnowledgeData{
		SourceIDs:            ids,
		KnowledgeBlocksCount: blocks,
	}), nil
}

var (
	_ loom.Tool           = (*KnowledgeBuilder)(nil)
	_ loom.InputValidator = (*KnowledgeBuilder)(nil)
)
