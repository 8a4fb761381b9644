package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/loomworks/loom"
)

// NewRunCmd creates the "run" subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <request-file>",
		Short: "Execute a pipeline for a request file",
		Long: "Reads a YAML or JSON request file describing the processing target,\n" +
			"selects the matching pipeline, and executes it.",
		Args: cobra.ExactArgs(1),
		RunE: runRun,
	}

	addPipelineFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "Write the result to a file (default: stdout)")
	cmd.Flags().String("format", "pretty", "Output format: json | text | pretty")
	cmd.Flags().Duration("timeout", 5*time.Minute, "Execution timeout")
	cmd.Flags().String("execution-id", "", "Execution id (default: generated)")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	pc, err := loadRequest(args[0])
	if err != nil {
		return err
	}

	cfg, err := resolvePipelineConfig(cmd)
	if err != nil {
		return err
	}

	st, err := resolveStore(cmd)
	if err != nil {
		return err
	}
	defer closeStore(st)

	logger := resolveLogger(cmd)
	orch, shutdown, err := buildOrchestrator(cmd, st, cfg, logger)
	if err != nil {
		return err
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		_ = shutdown(flushCtx)
	}()

	executionID, _ := cmd.Flags().GetString("execution-id")
	if executionID == "" {
		executionID = uuid.NewString()
	}

	result := orch.ExecuteWithProcessStrategy(ctx, pc, executionID)

	if err := writeResult(cmd, result); err != nil {
		return err
	}
	if !result.Success {
		if ctx.Err() == context.DeadlineExceeded {
			return exitError(exitTimeout, "execution timed out after %s", timeout)
		}
		return exitError(exitRuntime, "pipeline failed: %s", result.ErrorMessage)
	}
	return nil
}

// writeResult formats and writes the pipeline result.
func writeResult(cmd *cobra.Command, result *loom.Result) error {
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")

	var output string
	switch format {
	case "json":
		data, err := json.MarshalIndent(resultToJSON(result), "", "  ")
		if err != nil {
			return exitError(exitRuntime, "marshaling output: %v", err)
		}
		output = string(data)
	case "text":
		if result.Success {
			output = "ok"
		} else {
			output = "failed: " + result.ErrorMessage
		}
	case "pretty":
		output = formatPretty(result)
	default:
		return exitError(exitInputParse, "unknown format %q (use json, text, or pretty)", format)
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(output+"\n"), 0600); err != nil {
			return exitError(exitRuntime, "writing output file: %v", err)
		}
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}

// resultToJSON renders the result as a plain map for stable JSON output.
func resultToJSON(result *loom.Result) map[string]any {
	out := map[string]any{
		"success":          result.Success,
		"execution_id":     result.ExecutionID,
		"duration_seconds": result.DurationSeconds,
	}
	if result.ErrorMessage != "" {
		out["error"] = result.ErrorMessage
	}
	if result.Data != nil {
		out["data"] = result.Data
	}
	if len(result.Metadata) > 0 {
		out["metadata"] = result.Metadata
	}
	return out
}

// formatPretty returns a human-readable summary of the result.
func formatPretty(result *loom.Result) string {
	var sb strings.Builder

	sb.WriteString("=== Result ===\n")
	if result.Success {
		sb.WriteString("  Status: success\n")
	} else {
		sb.WriteString("  Status: failed\n")
		sb.WriteString(fmt.Sprintf("  Error: %s\n", result.ErrorMessage))
	}
	sb.WriteString(fmt.Sprintf("  Execution ID: %s\n", result.ExecutionID))
	sb.WriteString(fmt.Sprintf("  Duration: %.3fs\n", result.DurationSeconds))

	if len(result.Metadata) > 0 {
		sb.WriteString("\n=== Metadata ===\n")
		for k, v := range result.Metadata {
			sb.WriteString(fmt.Sprintf("  %s: %v\n", k, v))
		}
	}

	if result.Data != nil {
		if data, err := json.MarshalIndent(result.Data, "  ", "  "); err == nil {
			sb.WriteString("\n=== Data ===\n  ")
			sb.Write(data)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}
