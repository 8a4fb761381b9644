// Package config holds the static pipeline tables: named pipelines mapped
// to ordered tool-key lists, and tool keys mapped to full tool names. Both
// tables are data, not code, so compiled-in defaults can be overridden from
// a YAML file for testing and deployment.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/loomworks/loom"
)

// Standard pipeline names.
const (
	PipelineSingleDocExisting = "single_doc_existing_topic"
	PipelineBatchDocExisting  = "batch_doc_existing_topic"
	PipelineNewTopicBatch     = "new_topic_batch"
	PipelineTextToGraph       = "text_to_graph"
	PipelineKnowledgeBuild    = "knowledge_build"
	PipelineMemoryDirectGraph = "memory_direct_graph"
	PipelineMemorySingle      = "memory_single"
)

// Full tool names as registered in the registry.
const (
	ToolDocumentETL         = "DocumentETL"
	ToolBlueprintGeneration = "BlueprintGeneration"
	ToolGraphBuild          = "GraphBuild"
	ToolMemoryGraphBuild    = "MemoryGraphBuild"
	ToolKnowledgeBuilder    = "KnowledgeBuilder"
)

// Config is the pipeline configuration consumed by the orchestrator.
type Config struct {
	// Pipelines maps pipeline names to ordered lists of tool keys.
	Pipelines map[string][]string `yaml:"pipelines"`

	// ToolKeys maps short tool keys to full tool names.
	ToolKeys map[string]string `yaml:"tool_keys"`
}

// Default returns the compiled-in pipeline tables. A single document
// against an existing topic reuses the topic's ready blueprint, so its
// pipeline skips the blueprint stage; batch and new-topic ingestion run
// all three stages.
func Default() *Config {
	return &Config{
		Pipelines: map[string][]string{
			PipelineSingleDocExisting: {"etl", "graph_build"},
			PipelineBatchDocExisting:  {"etl", "blueprint_gen", "graph_build"},
			PipelineNewTopicBatch:     {"etl", "blueprint_gen", "graph_build"},
			PipelineTextToGraph:       {"graph_build"},
			PipelineKnowledgeBuild:    {"knowledge_builder"},
			PipelineMemoryDirectGraph: {"memory_graph_build"},
			PipelineMemorySingle:      {"memory_graph_build"},
		},
		ToolKeys: map[string]string{
			loom.KindIngest.String():     ToolDocumentETL,
			loom.KindBlueprint.String():  ToolBlueprintGeneration,
			loom.KindGraphBuild.String(): ToolGraphBuild,
			loom.KindMemory.String():     ToolMemoryGraphBuild,
			loom.KindKnowledge.String():  ToolKnowledgeBuilder,
		},
	}
}

// Load reads a YAML override file and merges it over the defaults.
// Pipelines and tool keys present in the file replace the default entry of
// the same name; everything else keeps its default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path from caller
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg := Default()
	for name, keys := range override.Pipelines {
		cfg.Pipelines[name] = keys
	}
	for key, name := range override.ToolKeys {
		cfg.ToolKeys[key] = name
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every tool key referenced by a pipeline resolves in
// the key table. Registry resolution is deliberately not checked here:
// tool lookup happens lazily per step at execution time.
func (c *Config) Validate() error {
	for name, keys := range c.Pipelines {
		for _, key := range keys {
			if _, ok := c.ToolKeys[key]; !ok {
				return fmt.Errorf("pipeline %q references unknown tool key %q", name, key)
			}
		}
	}
	return nil
}

// ToolName resolves a short tool key to its full tool name.
func (c *Config) ToolName(key string) (string, bool) {
	name, ok := c.ToolKeys[key]
	return name, ok
}

// KeyForTool resolves a full tool name back to its short key. Unmapped
// names resolve to themselves, which keeps forward-compatible tools with
// unknown kinds usable in custom pipelines.
func (c *Config) KeyForTool(name string) string {
	for key, n := range c.ToolKeys {
		if n == name {
			return key
		}
	}
	return name
}
