// Package cli implements the loom command line interface: running
// pipelines, validating requests, listing tools, queueing tasks, and the
// background daemon.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/yaml.v3"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/config"
	"github.com/loomworks/loom/llm"
	"github.com/loomworks/loom/orchestrator"
	loomotel "github.com/loomworks/loom/otel"
	"github.com/loomworks/loom/registry"
	"github.com/loomworks/loom/store"
	"github.com/loomworks/loom/tools"
)

// Exit codes.
const (
	exitValidation   = 1
	exitRuntime      = 2
	exitFileNotFound = 3
	exitInputParse   = 4
	exitProvider     = 5
	exitTimeout      = 10
)

// loadRequest reads a YAML or JSON request file into an execution context.
func loadRequest(path string) (*loom.Context, error) {
	data, err := readRequestFile(path)
	if err != nil {
		return nil, err
	}
	return decodeRequest(data)
}

func readRequestFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path from user CLI flag
	if err != nil {
		if os.IsNotExist(err) {
			return nil, exitError(exitFileNotFound, "file not found: %s", path)
		}
		return nil, exitError(exitRuntime, "reading request file: %v", err)
	}
	return data, nil
}

func decodeRequest(data []byte) (*loom.Context, error) {
	// YAML is a superset of JSON, so one decoder covers both.
	var pc loom.Context
	if err := yaml.Unmarshal(data, &pc); err != nil {
		return nil, exitError(exitInputParse, "parsing request file: %v", err)
	}
	return &pc, nil
}

// resolvePipelineConfig loads the pipeline tables, applying a --config
// override file when given.
func resolvePipelineConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if strings.TrimSpace(path) == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, exitError(exitValidation, "%v", err)
	}
	return cfg, nil
}

// resolveStore opens the SQLite store from --store-path, LOOM_SQLITE_PATH,
// or the default location.
func resolveStore(cmd *cobra.Command) (*store.SQLite, error) {
	path, _ := cmd.Flags().GetString("store-path")
	if strings.TrimSpace(path) == "" {
		path = strings.TrimSpace(os.Getenv("LOOM_SQLITE_PATH"))
	}
	if path == "" {
		var err error
		path, err = store.DefaultSQLitePath()
		if err != nil {
			return nil, exitError(exitRuntime, "resolving store path: %v", err)
		}
	}

	st, err := store.OpenSQLite(path)
	if err != nil {
		return nil, exitError(exitRuntime, "opening store: %v", err)
	}
	return st, nil
}

// resolveLLMClient builds the LLM client from --provider, --model, and the
// API key from --api-key or LOOM_API_KEY.
func resolveLLMClient(cmd *cobra.Command) (llm.Client, string, error) {
	provider, _ := cmd.Flags().GetString("provider")
	model, _ := cmd.Flags().GetString("model")
	apiKey, _ := cmd.Flags().GetString("api-key")
	if apiKey == "" {
		apiKey = os.Getenv("LOOM_API_KEY")
	}

	client, err := llm.NewClientFor(provider, apiKey)
	if err != nil {
		return nil, "", exitError(exitProvider, "%v", err)
	}
	return client, model, nil
}

// resolveLogger builds the slog logger from the root --verbose and --quiet
// flags. Logs go to stderr so stdout stays clean for command output.
func resolveLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// buildOrchestrator wires the store, tools, LLM client, and optional OTLP
// tracing into a ready orchestrator. The returned shutdown func flushes the
// trace exporter; it is safe to call even when tracing is disabled.
func buildOrchestrator(cmd *cobra.Command, st *store.SQLite, cfg *config.Config, logger *slog.Logger) (*orchestrator.Orchestrator, func(context.Context) error, error) {
	client, model, err := resolveLLMClient(cmd)
	if err != nil {
		return nil, nil, err
	}

	reg := registry.New()
	tools.RegisterAll(reg, tools.Deps{
		Sources:    st,
		Blueprints: st,
		Graph:      st,
		Memory:     st,
		Records:    st,
		LLM:        client,
		Model:      model,
		Logger:     logger,
	})

	shutdown := func(context.Context) error { return nil }
	opts := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithBlueprintLookup(st),
		orchestrator.WithTopicLookup(st),
	}

	// Pipeline events always reach the debug log; when an OTLP endpoint is
	// configured the tracing handler is fanned in alongside it.
	handlers := []orchestrator.EventHandler{eventLogger(logger)}

	endpoint, _ := cmd.Flags().GetString("otlp-endpoint")
	if strings.TrimSpace(endpoint) != "" {
		exporter, err := otlptracehttp.New(cmd.Context(),
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, nil, exitError(exitRuntime, "creating OTLP exporter: %v", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		handler := loomotel.NewTracingHandler(tp.Tracer("loom"))
		handlers = append(handlers, handler.Handle)
		shutdown = tp.Shutdown
	}
	opts = append(opts, orchestrator.WithEventHandler(orchestrator.MultiEventHandler(handlers...)))

	return orchestrator.New(reg, cfg, opts...), shutdown, nil
}

// eventLogger returns an event handler that mirrors pipeline events to the
// debug log.
func eventLogger(logger *slog.Logger) orchestrator.EventHandler {
	return func(e orchestrator.Event) {
		logger.Debug("pipeline event",
			"kind", e.Kind.String(),
			"execution_id", e.ExecutionID,
			"tool", e.ToolName,
			"seq", e.Seq)
	}
}

// addPipelineFlags registers the flags shared by every command that builds
// an orchestrator.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to a pipeline configuration override file (YAML)")
	cmd.Flags().String("store-path", "", "Path to SQLite store (default: ~/.loom/loom.db)")
	cmd.Flags().String("provider", "openai", "LLM provider: openai | anthropic | ollama")
	cmd.Flags().String("model", "", "Model identifier passed to the provider")
	cmd.Flags().String("api-key", "", "Provider API key (default: $LOOM_API_KEY)")
	cmd.Flags().String("otlp-endpoint", "", "OTLP/HTTP endpoint for trace export (disabled when empty)")
}

func closeStore(st *store.SQLite) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "closing store: %v\n", err)
	}
}
