package orchestrator

import (
	"context"
	"fmt"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/config"
)

// ExecuteWithProcessStrategy executes a request-shaped context. An
// explicit ordered tool-key list in the request's process strategy runs
// directly (knowledge-graph targets only; memory and knowledge-build
// targets always use their fixed single tool); otherwise the default
// pipeline is selected from the request's target domain, input shape,
// file count, and topic novelty.
func (o *Orchestrator) ExecuteWithProcessStrategy(ctx context.Context, pc *loom.Context, executionID string) *loom.Result {
	if executionID == "" {
		executionID = o.newID()
	}
	if pc == nil {
		pc = loom.NewContext()
	}
	strategy := pc.Strategy

	// A present pipeline list means explicit mode even when it is empty:
	// an explicit empty list runs an empty custom pipeline rather than
	// falling through to default selection.
	if strategy != nil && strategy.Pipeline != nil {
		switch pc.TargetType {
		case loom.TargetKnowledgeGraph:
			tools := make([]string, 0, len(strategy.Pipeline)+1)
			for _, key := range strategy.Pipeline {
				name, ok := o.cfg.ToolName(key)
				if !ok {
					return o.failAt(o.now(), executionID,
						fmt.Sprintf("invalid tool key %q in pipeline configuration", key), nil)
				}
				tools = append(tools, name)
			}
			if strategy.KnowledgeBuild && !containsString(strategy.Pipeline, loom.KindKnowledge.String()) {
				tools = append(tools, config.ToolKnowledgeBuilder)
			}
			o.logger.Info("executing explicit pipeline from process strategy",
				"target_type", pc.TargetType, "tools", tools)
			return o.ExecuteCustomPipeline(ctx, tools, pc, executionID)

		case loom.TargetPersonalMemory:
			// Memory processing always runs its fixed tool, even when an
			// explicit pipeline was supplied.
			return o.ExecuteCustomPipeline(ctx, []string{config.ToolMemoryGraphBuild}, pc, executionID)

		case loom.TargetKnowledgeBuild:
			return o.ExecuteCustomPipeline(ctx, []string{config.ToolKnowledgeBuilder}, pc, executionID)
		}
	}

	fileCount := len(pc.Files)
	isNew := o.isNewTopic(ctx, pc)
	inputType := inferInputType(pc)

	pipelineName := o.SelectDefaultPipeline(pc.TargetType, pc.TopicName, fileCount, isNew, inputType)
	o.logger.Info("selected default pipeline",
		"pipeline", pipelineName,
		"target_type", pc.TargetType,
		"input_type", inputType,
		"file_count", fileCount,
		"is_new_topic", isNew)

	appendKnowledge := strategy != nil && strategy.KnowledgeBuild && pc.TargetType == loom.TargetKnowledgeGraph
	return o.executePipeline(ctx, pipelineName, pc, appendKnowledge, executionID)
}

// SelectDefaultPipeline is a pure decision table over target domain, input
// shape, file count, and topic novelty. First match wins.
func (o *Orchestrator) SelectDefaultPipeline(target loom.TargetType, topicName string, fileCount int, isNewTopic bool, inputType loom.InputType) string {
	if target == loom.TargetPersonalMemory || inputType == loom.InputDialogue {
		if inputType == loom.InputDialogue {
			return config.PipelineMemoryDirectGraph
		}
		return config.PipelineMemorySingle
	}

	if target == loom.TargetKnowledgeBuild {
		return config.PipelineKnowledgeBuild
	}

	if target == loom.TargetKnowledgeGraph {
		switch inputType {
		case loom.InputDocument:
			switch {
			case isNewTopic:
				return config.PipelineNewTopicBatch
			case fileCount == 1:
				return config.PipelineSingleDocExisting
			default:
				return config.PipelineBatchDocExisting
			}
		case loom.InputText:
			return config.PipelineTextToGraph
		}
	}

	return config.PipelineSingleDocExisting
}

// inferInputType classifies the payload: dialogue for memory targets,
// build for knowledge-build targets, document otherwise. A bare string
// payload with no files downgrades document to text.
func inferInputType(pc *loom.Context) loom.InputType {
	t := loom.InputDocument
	switch pc.TargetType {
	case loom.TargetPersonalMemory:
		t = loom.InputDialogue
	case loom.TargetKnowledgeBuild:
		t = loom.InputBuild
	}
	if pc.Input != "" && len(pc.Files) == 0 {
		t = loom.InputText
	}
	return t
}

// isNewTopic resolves topic novelty: memory and knowledge-build targets
// are never "new"; an explicit flag wins; otherwise existence is inferred
// from ingested source data, defaulting to new when no topic name exists.
func (o *Orchestrator) isNewTopic(ctx context.Context, pc *loom.Context) bool {
	if pc.TargetType == loom.TargetPersonalMemory || pc.TargetType == loom.TargetKnowledgeBuild {
		return false
	}
	if pc.IsNewTopic != nil {
		return *pc.IsNewTopic
	}
	if pc.TopicName == "" {
		return true
	}
	if o.topics == nil {
		return false
	}
	has, err := o.topics.TopicHasSources(ctx, pc.TopicName)
	if err != nil {
		o.logger.Warn("topic lookup failed, assuming existing topic",
			"topic", pc.TopicName, "error", err)
		return false
	}
	return !has
}
