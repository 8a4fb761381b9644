package orchestrator

import (
	"context"

	"github.com/loomworks/loom"
)

// inputBuilder derives a tool-kind-specific input from the current context
// and the results of already-completed steps.
type inputBuilder func(o *Orchestrator, ctx context.Context, pc *loom.Context, prior *loom.ResultSet) (loom.Input, error)

// inputBuilders selects the typed input-construction function per tool
// kind. Kinds absent from the table fall back to identity mapping, which
// keeps forward-compatible tool kinds working without specialized shaping.
var inputBuilders = map[loom.Kind]inputBuilder{
	loom.KindIngest:     buildIngestInput,
	loom.KindBlueprint:  buildBlueprintInput,
	loom.KindGraphBuild: buildGraphBuildInput,
	loom.KindMemory:     buildMemoryInput,
	loom.KindKnowledge:  buildKnowledgeInput,
}

func (o *Orchestrator) prepareInput(ctx context.Context, kind loom.Kind, pc *loom.Context, prior *loom.ResultSet) (loom.Input, error) {
	build, ok := inputBuilders[kind]
	if !ok {
		return loom.RawInput{Context: pc.Clone()}, nil
	}
	return build(o, ctx, pc, prior)
}

// buildIngestInput selects batch or single-file shape by the presence of a
// non-empty file list rather than an explicit mode flag. An empty list
// falls through to single-file shape even when no
// single path is present either; the tool's own validation rejects that
// degenerate case.
func buildIngestInput(_ *Orchestrator, _ context.Context, pc *loom.Context, _ *loom.ResultSet) (loom.Input, error) {
	if len(pc.Files) > 0 {
		return loom.IngestInput{
			Files:           pc.Files,
			TopicName:       pc.TopicName,
			RequestMetadata: pc.Metadata,
			ForceRegenerate: pc.ForceRegenerate,
		}, nil
	}
	return loom.IngestInput{
		FilePath:         pc.FilePath,
		TopicName:        pc.TopicName,
		Metadata:         pc.Metadata,
		ForceRegenerate:  pc.ForceRegenerate,
		Link:             pc.Link,
		OriginalFilename: pc.OriginalFilename,
	}, nil
}

// buildBlueprintInput collects accumulated upstream identifiers; when none
// accumulated but a single identifier is present, it is wrapped into a
// one-element list. A nil list means topic-based processing.
func buildBlueprintInput(_ *Orchestrator, _ context.Context, pc *loom.Context, _ *loom.ResultSet) (loom.Input, error) {
	ids := pc.SourceDataIDs
	if len(ids) == 0 && pc.SourceDataID != "" {
		ids = []string{pc.SourceDataID}
	}
	return loom.BlueprintInput{
		TopicName:       pc.TopicName,
		SourceDataIDs:   ids,
		ForceRegenerate: pc.ForceRegenerate,
	}, nil
}

// buildGraphBuildInput chooses between the three mutually exclusive
// graph-build shapes based on how many identifiers are present and whether
// a blueprint was resolved. When the context carries no blueprint id, the
// latest ready blueprint for the topic is resolved through the external
// lookup collaborator.
func buildGraphBuildInput(o *Orchestrator, ctx context.Context, pc *loom.Context, _ *loom.ResultSet) (loom.Input, error) {
	ids := pc.SourceDataIDs
	if len(ids) == 0 && pc.SourceDataID != "" {
		ids = []string{pc.SourceDataID}
	}

	blueprintID := pc.BlueprintID
	if blueprintID == "" && pc.TopicName != "" && o.blueprints != nil {
		resolved, err := o.blueprints.LatestReadyBlueprintID(ctx, pc.TopicName)
		if err != nil {
			return nil, err
		}
		blueprintID = resolved
	}

	switch {
	case len(ids) == 1:
		return loom.GraphBuildInput{
			SourceDataID:    ids[0],
			BlueprintID:     blueprintID,
			ForceRegenerate: pc.ForceRegenerate,
		}, nil
	case len(ids) > 1 && blueprintID != "":
		return loom.GraphBuildInput{
			SourceDataIDs:   ids,
			BlueprintID:     blueprintID,
			ForceRegenerate: pc.ForceRegenerate,
		}, nil
	default:
		return loom.GraphBuildInput{
			TopicName:       pc.TopicName,
			ForceRegenerate: pc.ForceRegenerate,
		}, nil
	}
}

// buildMemoryInput passes the raw message list and user identifier
// straight through.
func buildMemoryInput(_ *Orchestrator, _ context.Context, pc *loom.Context, _ *loom.ResultSet) (loom.Input, error) {
	return loom.MemoryInput{
		ChatMessages:    pc.ChatMessages,
		UserID:          pc.UserID,
		SourceID:        pc.SourceID,
		ForceRegenerate: pc.ForceRegenerate,
	}, nil
}

// buildKnowledgeInput carries all files in batch mode; single mode falls
// back to the link or file path, with empty attribute values dropped.
func buildKnowledgeInput(_ *Orchestrator, _ context.Context, pc *loom.Context, _ *loom.ResultSet) (loom.Input, error) {
	attrs := make(map[string]any, len(pc.Metadata)+2)
	for k, v := range pc.Metadata {
		if v != nil {
			attrs[k] = v
		}
	}
	if pc.TopicName != "" {
		attrs["topic_name"] = pc.TopicName
	}

	if len(pc.Files) > 0 {
		return loom.KnowledgeInput{
			Files:      pc.Files,
			Attributes: attrs,
		}, nil
	}

	sourcePath := pc.Link
	if sourcePath == "" {
		sourcePath = pc.FilePath
	}
	if pc.Link != "" {
		attrs["doc_link"] = pc.Link
	}
	return loom.KnowledgeInput{
		SourcePath: sourcePath,
		Attributes: attrs,
	}, nil
}
