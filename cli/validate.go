package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/config"
)

// requestSchema constrains the shape of a request document before the
// per-target field checks run. Types only; which fields are required
// depends on the target and is decided by validateRequest.
const requestSchema = `{
	"type": "object",
	"properties": {
		"target_type": {"type": "string"},
		"topic_name": {"type": "string"},
		"metadata": {"type": "object"},
		"files": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"path": {"type": "string"},
					"filename": {"type": "string"},
					"link": {"type": "string"},
					"content_type": {"type": "string"},
					"metadata": {"type": "object"}
				}
			}
		},
		"file_path": {"type": "string"},
		"link": {"type": "string"},
		"original_filename": {"type": "string"},
		"input": {"type": "string"},
		"chat_messages": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"role": {"type": "string"},
					"content": {"type": "string"}
				}
			}
		},
		"user_id": {"type": "string"},
		"source_id": {"type": "string"},
		"source_data_ids": {"type": "array", "items": {"type": "string"}},
		"source_data_id": {"type": "string"},
		"blueprint_id": {"type": "string"},
		"force_regenerate": {"type": "boolean"},
		"is_new_topic": {"type": "boolean"},
		"process_strategy": {
			"type": "object",
			"properties": {
				"pipeline": {"type": "array", "items": {"type": "string"}},
				"knowledge_build": {"type": "boolean"}
			}
		}
	}
}`

// Diagnostic severities.
const (
	severityError   = "error"
	severityWarning = "warning"
)

// Diagnostic is one validation finding for a request file.
type Diagnostic struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// NewValidateCmd creates the "validate" subcommand.
func NewValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <request-file>",
		Short: "Validate a request file without executing",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}

	cmd.Flags().String("config", "", "Path to a pipeline configuration override file (YAML)")
	cmd.Flags().String("format", "text", "Output format: text | json")
	cmd.Flags().Bool("strict", false, "Treat warnings as errors")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	strict, _ := cmd.Flags().GetBool("strict")
	out := cmd.OutOrStdout()

	data, err := readRequestFile(args[0])
	if err != nil {
		return err
	}

	cfg, err := resolvePipelineConfig(cmd)
	if err != nil {
		return err
	}

	// Structural checks first: a document that fails the schema cannot be
	// decoded into a context for the field-level checks.
	diags, err := schemaDiagnostics(data)
	if err != nil {
		return err
	}
	if len(diags) == 0 {
		pc, err := decodeRequest(data)
		if err != nil {
			return err
		}
		diags = validateRequest(pc, cfg)
	}
	printDiagnostics(out, diags, format)

	hasErrs := false
	hasWarns := false
	for _, d := range diags {
		switch d.Severity {
		case severityError:
			hasErrs = true
		case severityWarning:
			hasWarns = true
		}
	}

	if hasErrs || (strict && hasWarns) {
		return exitError(exitValidation, "validation failed")
	}
	return nil
}

// schemaDiagnostics validates the raw request document against the request
// schema, reporting each violation as an error diagnostic.
func schemaDiagnostics(data []byte) ([]Diagnostic, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, exitError(exitInputParse, "parsing request file: %v", err)
	}
	if doc == nil {
		return nil, nil
	}

	res, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(requestSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return nil, exitError(exitRuntime, "validating request schema: %v", err)
	}

	var diags []Diagnostic
	for _, e := range res.Errors() {
		diags = append(diags, Diagnostic{
			Severity: severityError,
			Message:  fmt.Sprintf("%s: %s", e.Field(), e.Description()),
		})
	}
	return diags, nil
}

// validateRequest checks a request context against the pipeline tables and
// the per-target input requirements.
func validateRequest(pc *loom.Context, cfg *config.Config) []Diagnostic {
	var diags []Diagnostic

	errf := func(format string, args ...any) {
		diags = append(diags, Diagnostic{Severity: severityError, Message: fmt.Sprintf(format, args...)})
	}
	warnf := func(format string, args ...any) {
		diags = append(diags, Diagnostic{Severity: severityWarning, Message: fmt.Sprintf(format, args...)})
	}

	switch pc.TargetType {
	case "", loom.TargetKnowledgeGraph, loom.TargetPersonalMemory, loom.TargetKnowledgeBuild:
	default:
		errf("unknown target type %q", pc.TargetType)
	}

	if pc.TargetType == loom.TargetPersonalMemory {
		if len(pc.ChatMessages) == 0 {
			errf("personal_memory target requires chat_messages")
		}
		if pc.UserID == "" {
			warnf("personal_memory target without user_id")
		}
	}

	if pc.TargetType == loom.TargetKnowledgeBuild && len(pc.Files) == 0 && pc.FilePath == "" {
		errf("knowledge_build target requires files or file_path")
	}

	if pc.Strategy != nil {
		for _, key := range pc.Strategy.Pipeline {
			if _, ok := cfg.ToolName(key); !ok {
				errf("process_strategy references unknown tool key %q", key)
			}
		}
	}

	// Missing files are warnings: paths may only resolve on the machine
	// that eventually runs the pipeline.
	for _, f := range pc.Files {
		if strings.TrimSpace(f.Path) == "" {
			errf("file entry with empty path")
			continue
		}
		if _, err := os.Stat(f.Path); err != nil {
			warnf("file not found: %s", f.Path)
		}
	}
	if pc.FilePath != "" {
		if _, err := os.Stat(pc.FilePath); err != nil {
			warnf("file not found: %s", pc.FilePath)
		}
	}

	if pc.TargetType != loom.TargetPersonalMemory &&
		len(pc.Files) == 0 && pc.FilePath == "" && pc.Input == "" {
		warnf("request carries no files, file_path, or input text")
	}

	return diags
}

// printDiagnostics writes diagnostics in the requested format, followed by
// a summary line for text output.
func printDiagnostics(w io.Writer, diags []Diagnostic, format string) {
	if format == "json" {
		// Output an empty array rather than null when there are no findings.
		if diags == nil {
			diags = []Diagnostic{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(diags)
		return
	}

	var errs, warns int
	for _, d := range diags {
		fmt.Fprintf(w, "%s: %s\n", strings.ToUpper(d.Severity), d.Message)
		if d.Severity == severityError {
			errs++
		} else {
			warns++
		}
	}

	switch {
	case errs == 0 && warns == 0:
		fmt.Fprintln(w, "Valid!")
	case errs == 0:
		fmt.Fprintf(w, "\nValid! (%d %s)\n", warns, pluralize("warning", warns))
	default:
		fmt.Fprintf(w, "\n%d %s, %d %s\n",
			errs, pluralize("error", errs),
			warns, pluralize("warning", warns))
	}
}

// pluralize returns the singular or plural form of a word based on count.
func pluralize(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}
