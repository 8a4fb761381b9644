package tools

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/xeipuuv/gojsonschema"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/config"
	"github.com/loomworks/loom/extract"
	"github.com/loomworks/loom/llm"
	"github.com/loomworks/loom/store"
)

var graphInputSchema = mustSchema(`{
	"type": "object",
	"properties": {
		"source_data_id": {"type": "string", "minLength": 1},
		"source_data_ids": {"type": "array", "minItems": 1},
		"topic_name": {"type": "string", "minLength": 1}
	},
	"anyOf": [
		{"required": ["source_data_id"]},
		{"required": ["source_data_ids"]},
		{"required": ["topic_name"]}
	]
}`)

const graphInstructions = "You extract knowledge triplets from documents. " +
	"Output one triplet per line as subject|predicate|object. Output nothing else."

// GraphBuild extracts knowledge triplets from source data into the graph,
// guided by the topic's blueprint when one is available.
type GraphBuild struct {
	sources    store.SourceStore
	blueprints store.BlueprintStore
	graph      store.GraphStore
	client     llm.Client
	model      string
	extractors []extract.Extractor
	logger     *slog.Logger
	schema     *gojsonschema.Schema
}

// NewGraphBuild creates the graph construction tool.
func NewGraphBuild(sources store.SourceStore, blueprints store.BlueprintStore, graph store.GraphStore, client llm.Client, model string, logger *slog.Logger) *GraphBuild {
	return &GraphBuild{
		sources:    sources,
		blueprints: blueprints,
		graph:      graph,
		client:     client,
		model:      model,
		extractors: extract.Default(),
		logger:     defaultLogger(logger),
		schema:     graphInputSchema,
	}
}

// Name returns the tool's registered name.
func (t *GraphBuild) Name() string { return config.ToolGraphBuild }

// Kind returns the tool's kind.
func (t *GraphBuild) Kind() loom.Kind { return loom.KindGraphBuild }

// Description returns a one-line description.
func (t *GraphBuild) Description() string {
	return "Extracts knowledge triplets from source data into the graph"
}

// ValidateInput requires one of the three mutually exclusive shapes.
func (t *GraphBuild) ValidateInput(in loom.Input) bool {
	gb, ok := in.(loom.GraphBuildInput)
	if !ok {
		return false
	}
	doc := map[string]any{}
	if gb.SourceDataID != "" {
		doc["source_data_id"] = gb.SourceDataID
	}
	if len(gb.SourceDataIDs) > 0 {
		ids := make([]any, len(gb.SourceDataIDs))
		for i, id := range gb.SourceDataIDs {
			ids[i] = id
		}
		doc["source_data_ids"] = ids
	}
	if gb.TopicName != "" {
		doc["topic_name"] = gb.TopicName
	}
	return schemaValid(t.schema, doc, t.logger)
}

// Execute extracts triplets from each resolved source and persists them.
func (t *GraphBuild) Execute(ctx context.Context, in loom.Input) (*loom.Result, error) {
	input, ok := in.(loom.GraphBuildInput)
	if !ok {
		return loom.Failuref("unexpected input type %T", in), nil
	}

	ids, failure, err := t.resolveSources(ctx, input)
	if failure != nil || err != nil {
		return failure, err
	}

	plan := ""
	if input.BlueprintID != "" {
		bp, found, err := t.blueprints.GetBlueprint(ctx, input.BlueprintID)
		if err != nil {
			return nil, fmt.Errorf("loading blueprint: %w", err)
		}
		if !found {
			return loom.Failuref("blueprint %q not found", input.BlueprintID), nil
		}
		plan = bp.Plan
	}

	var (
		triplets      []store.Triplet
		entities      = map[string]struct{}{}
		relationships = map[string]struct{}{}
	)
	for _, id := range ids {
		src, found, err := t.sources.GetSource(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loading source %s: %w", id, err)
		}
		if !found {
			return loom.Failuref("source data %q not found", id), nil
		}

		text, err := t.sourceText(src)
		if err != nil {
			return loom.Failuref("reading source %s: %v", id, err), nil
		}

		prompt := text
		if plan != "" {
			prompt = "Blueprint:\n" + plan + "\n\nDocument:\n" + text
		}
		resp, err := t.client.Complete(ctx, llm.Request{
			Model:        t.model,
			Instructions: graphInstructions,
			Prompt:       prompt,
		})
		if err != nil {
			return nil, fmt.Errorf("extracting triplets from %s: %w", id, err)
		}

		for _, tr := range parseTriplets(resp.Text) {
			triplets = append(triplets, store.Triplet{
				SourceDataID: id,
				BlueprintID:  input.BlueprintID,
				Subject:      tr[0],
				Predicate:    tr[1],
				Object:       tr[2],
			})
			entities[tr[0]] = struct{}{}
			entities[tr[2]] = struct{}{}
			relationships[tr[1]] = struct{}{}
		}
	}

	if err := t.graph.AddTriplets(ctx, triplets); err != nil {
		return nil, fmt.Errorf("persisting triplets: %w", err)
	}
	for _, id := range ids {
		if err := t.sources.UpdateSourceStatus(ctx, id, store.SourceStatusCompleted); err != nil {
			t.logger.Warn("updating source status failed", "source_data_id", id, "error", err)
		}
	}
	t.logger.Info("graph construction completed",
		"sources", len(ids), "triplets", len(triplets))

	return loom.Success(loom.GraphData{
		SourceDataIDs:        ids,
		BlueprintID:          input.BlueprintID,
		TripletsExtracted:    len(triplets),
		EntitiesCreated:      len(entities),
		RelationshipsCreated: len(relationships),
		Status:               store.SourceStatusCompleted,
	}), nil
}

// resolveSources expands the input shape into a concrete id list.
func (t *GraphBuild) resolveSources(ctx context.Context, input loom.GraphBuildInput) ([]string, *loom.Result, error) {
	switch input.Shape() {
	case loom.GraphShapeSingle:
		return []string{input.SourceDataID}, nil, nil
	case loom.GraphShapeBatch:
		return input.SourceDataIDs, nil, nil
	default:
		srcs, err := t.sources.SourcesByTopic(ctx, input.TopicName)
		if err != nil {
			return nil, nil, fmt.Errorf("listing topic sources: %w", err)
		}
		if len(srcs) == 0 {
			return nil, loom.Failuref("no source data for topic %q", input.TopicName), nil
		}
		ids := make([]string, len(srcs))
		for i, s := range srcs {
			ids[i] = s.ID
		}
		return ids, nil, nil
	}
}

func (t *GraphBuild) sourceText(src store.SourceData) (string, error) {
	if src.FilePath == "" {
		return "", fmt.Errorf("source has no local file")
	}
	data, err := os.ReadFile(src.FilePath)
	if err != nil {
		return "", err
	}
	doc, err := extract.ForFile(src.FilePath, t.extractors...).Extract(src.FilePath, data)
	if err != nil {
		return "", err
	}
	return doc.Text(), nil
}

var (
	_ loom.Tool           = (*GraphBuild)(nil)
	_ loom.InputValidator = (*GraphBuild)(nil)
)
