package tools

import (
	"log/slog"

	"github.com/loomworks/loom/llm"
	"github.com/loomworks/loom/registry"
	"github.com/loomworks/loom/store"
)

// Deps carries the collaborators shared by the built-in tools. Records is
// optional; when present every tool is wrapped with execution tracking.
type Deps struct {
	Sources    store.SourceStore
	Blueprints store.BlueprintStore
	Graph      store.GraphStore
	Memory     store.MemoryStore
	Records    store.RecordStore
	LLM        llm.Client
	Model      string
	Logger     *slog.Logger
}

// RegisterAll registers the five built-in tools.
func RegisterAll(reg *registry.Registry, deps Deps) {
	etl := NewDocumentETL(deps.Sources, nil, deps.Logger)
	blueprint := NewBlueprintGeneration(deps.Sources, deps.Blueprints, deps.LLM, deps.Model, deps.Logger)
	graph := NewGraphBuild(deps.Sources, deps.Blueprints, deps.Graph, deps.LLM, deps.Model, deps.Logger)
	memory := NewMemoryGraphBuild(deps.Memory, deps.Graph, deps.LLM, deps.Model, deps.Logger)
	knowledge := NewKnowledgeBuilder(deps.Sources, deps.Logger)

	reg.Register(NewTracked(etl, deps.Records, deps.Logger))
	reg.Register(NewTracked(blueprint, deps.Records, deps.Logger))
	reg.Register(NewTracked(graph, deps.Records, deps.Logger))
	reg.Register(NewTracked(memory, deps.Records, deps.Logger))
	reg.Register(NewTracked(knowledge, deps.Records, deps.Logger))
}
