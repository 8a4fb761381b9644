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

var etlInputSchema = mustSchema(`{
	"type": "object",
	"properties": {
		"files": {"type": "array", "minItems": 1},
		"file_path": {"type": "string", "minLength": 1},
		"topic_name": {"type": "string"}
	},
	"anyOf": [
		{"required": ["files"]},
		{"required": ["file_path"]}
	]
}`)

// DocumentETL ingests raw document files into source data rows,
// fingerprinting content so unchanged documents are reused instead of
// reprocessed.
type DocumentETL struct {
	sources    store.SourceStore
	extractors []extract.Extractor
	logger     *slog.Logger
	newID      func() string
	schema     *gojsonschema.Schema
}

// NewDocumentETL creates the ingestion tool. A nil logger falls back to
// slog.Default; a nil extractor list uses the built-in set.
func NewDocumentETL(sources store.SourceStore, extractors []extract.Extractor, logger *slog.Logger) *DocumentETL {
	if extractors == nil {
		extractors = extract.Default()
	}
	return &DocumentETL{
		sources:    sources,
		extractors: extractors,
		logger:     defaultLogger(logger),
		newID:      uuid.NewString,
		schema:     etlInputSchema,
	}
}

// Name returns the tool's registered name.
func (t *DocumentETL) Name() string { return config.ToolDocumentETL }

// Kind returns the tool's kind.
func (t *DocumentETL) Kind() loom.Kind { return loom.KindIngest }

// Description returns a one-line description.
func (t *DocumentETL) Description() string {
	return "Ingests document files into structured source data"
}

// ValidateInput checks the synthesized input against the tool's schema.
// The degenerate no-files, no-path shape is rejected here.
func (t *DocumentETL) ValidateInput(in loom.Input) bool {
	ing, ok := in.(loom.IngestInput)
	if !ok {
		return false
	}
	doc := map[string]any{"topic_name": ing.TopicName}
	if len(ing.Files) > 0 {
		files := make([]any, len(ing.Files))
		for i, f := range ing.Files {
			files[i] = map[string]any{"path": f.Path}
		}
		doc["files"] = files
	}
	if ing.FilePath != "" {
		doc["file_path"] = ing.FilePath
	}
	return schemaValid(t.schema, doc, t.logger)
}

// Execute ingests each file: hash, reuse check, extraction, persistence.
func (t *DocumentETL) Execute(ctx context.Context, in loom.Input) (*loom.Result, error) {
	ing, ok := in.(loom.IngestInput)
	if !ok {
		return loom.Failuref("unexpected input type %T", in), nil
	}

	files := ing.Files
	if !ing.Batch() {
		files = []loom.FileRef{{
			Path: ing.FilePath,
			Name: ing.OriginalFilename,
			Link: ing.Link,
		}}
	}

	topic := ing.TopicName
	var (
		ids    []string
		reused bool
	)
	for _, f := range files {
		if f.Path == "" {
			return loom.Failuref("file %q has no local path", f.Name), nil
		}
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return loom.Failuref("reading file %s: %v", f.Path, err), nil
		}

		hash := extract.Hash(data)
		if !ing.ForceRegenerate {
			existing, found, err := t.sources.FindSourceByHash(ctx, topic, hash)
			if err != nil {
				return nil, fmt.Errorf("checking for existing source: %w", err)
			}
			if found {
				t.logger.Info("reusing existing source data",
					"source_data_id", existing.ID, "file", f.Path)
				ids = append(ids, existing.ID)
				reused = true
				continue
			}
		}

		doc, err := extract.ForFile(f.Path, t.extractors...).Extract(f.Path, data)
		if err != nil {
			return loom.Failuref("extracting %s: %v", f.Path, err), nil
		}
		if topic == "" {
			topic = doc.Title
		}

		src := &store.SourceData{
			ID:               t.newID(),
			TopicName:        topic,
			FilePath:         f.Path,
			Link:             f.Link,
			OriginalFilename: f.Name,
			ContentHash:      hash,
			Status:           store.SourceStatusCompleted,
		}
		if err := t.sources.CreateSource(ctx, src); err != nil {
			return nil, fmt.Errorf("persisting source data: %w", err)
		}
		ids = append(ids, src.ID)
	}

	res := loom.Success(loom.IngestData{
		SourceDataIDs:  ids,
		ReusedExisting: reused,
		Status:         store.SourceStatusCompleted,
	})
	if topic != "" {
		res = res.WithMetadata("topic_name", topic)
	}
	return res, nil
}

var (
	_ loom.Tool           = (*DocumentETL)(nil)
	_ loom.InputValidator = (*DocumentETL)(nil)
)
