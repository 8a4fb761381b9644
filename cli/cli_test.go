package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/config"
)

// newTestRoot creates a fresh cobra root command wired to the subcommands
// under test. Each test gets an isolated command tree to avoid shared state.
func newTestRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "loom",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolP("verbose", "", false, "")
	root.PersistentFlags().BoolP("quiet", "", false, "")
	root.AddCommand(NewValidateCmd())
	root.AddCommand(NewToolsCmd())
	return root
}

// executeCommand runs a cobra command with the given args and captures stdout/stderr.
func executeCommand(root *cobra.Command, args ...string) (stdout, stderr string, err error) {
	var outBuf, errBuf bytes.Buffer
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetArgs(args)
	err = root.Execute()
	return outBuf.String(), errBuf.String(), err
}

// writeTestFile creates a temporary file with the given content and returns its path.
func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRequest_YAML(t *testing.T) {
	path := writeTestFile(t, "req.yaml", `
target_type: knowledge_graph
topic_name: golang
files:
  - path: /tmp/doc.md
    filename: doc.md
`)

	pc, err := loadRequest(path)
	if err != nil {
		t.Fatalf("loadRequest: %v", err)
	}
	if pc.TargetType != loom.TargetKnowledgeGraph {
		t.Errorf("expected knowledge_graph target, got %q", pc.TargetType)
	}
	if pc.TopicName != "golang" {
		t.Errorf("expected topic 'golang', got %q", pc.TopicName)
	}
	if len(pc.Files) != 1 || pc.Files[0].Name != "doc.md" {
		t.Errorf("expected one file 'doc.md', got %+v", pc.Files)
	}
}

func TestLoadRequest_JSON(t *testing.T) {
	path := writeTestFile(t, "req.json", `{
  "target_type": "personal_memory",
  "user_id": "u-1",
  "chat_messages": [{"role": "user", "content": "hello"}]
}`)

	pc, err := loadRequest(path)
	if err != nil {
		t.Fatalf("loadRequest: %v", err)
	}
	if pc.TargetType != loom.TargetPersonalMemory {
		t.Errorf("expected personal_memory target, got %q", pc.TargetType)
	}
	if len(pc.ChatMessages) != 1 || pc.ChatMessages[0].Content != "hello" {
		t.Errorf("expected one chat message, got %+v", pc.ChatMessages)
	}
}

func TestLoadRequest_MissingFile(t *testing.T) {
	_, err := loadRequest(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %T", err)
	}
	if exitErr.Code != exitFileNotFound {
		t.Errorf("expected exit code %d, got %d", exitFileNotFound, exitErr.Code)
	}
}

func TestLoadRequest_Malformed(t *testing.T) {
	path := writeTestFile(t, "bad.yaml", "target_type: [unclosed")

	_, err := loadRequest(path)
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %T", err)
	}
	if exitErr.Code != exitInputParse {
		t.Errorf("expected exit code %d, got %d", exitInputParse, exitErr.Code)
	}
}

func TestValidateRequest(t *testing.T) {
	cfg := config.Default()

	existing := writeTestFile(t, "doc.md", "# Title\n\nbody\n")

	tests := []struct {
		name      string
		pc        *loom.Context
		wantErrs  int
		wantWarns int
	}{
		{
			name: "valid document request",
			pc: &loom.Context{
				TargetType: loom.TargetKnowledgeGraph,
				TopicName:  "go",
				Files:      []loom.FileRef{{Path: existing}},
			},
		},
		{
			name:     "unknown target",
			pc:       &loom.Context{TargetType: "everything", Input: "text"},
			wantErrs: 1,
		},
		{
			name:      "memory without messages or user",
			pc:        &loom.Context{TargetType: loom.TargetPersonalMemory},
			wantErrs:  1,
			wantWarns: 1,
		},
		{
			name:     "knowledge build without files",
			pc:       &loom.Context{TargetType: loom.TargetKnowledgeBuild},
			wantErrs: 1,
			// Also warns about carrying no input at all.
			wantWarns: 1,
		},
		{
			name: "unknown strategy key",
			pc: &loom.Context{
				TargetType: loom.TargetKnowledgeGraph,
				Input:      "some text",
				Strategy:   &loom.ProcessStrategy{Pipeline: []string{"etl", "mystery"}},
			},
			wantErrs: 1,
		},
		{
			name: "missing file warns",
			pc: &loom.Context{
				TargetType: loom.TargetKnowledgeGraph,
				Files:      []loom.FileRef{{Path: "/does/not/exist.md"}},
			},
			wantWarns: 1,
		},
		{
			name:     "empty file path",
			pc:       &loom.Context{Files: []loom.FileRef{{Path: "  "}}},
			wantErrs: 1,
		},
		{
			name:      "empty request warns",
			pc:        &loom.Context{TargetType: loom.TargetKnowledgeGraph},
			wantWarns: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := validateRequest(tt.pc, cfg)
			var errs, warns int
			for _, d := range diags {
				if d.Severity == severityError {
					errs++
				} else {
					warns++
				}
			}
			if errs != tt.wantErrs {
				t.Errorf("expected %d errors, got %d (%+v)", tt.wantErrs, errs, diags)
			}
			if warns != tt.wantWarns {
				t.Errorf("expected %d warnings, got %d (%+v)", tt.wantWarns, warns, diags)
			}
		})
	}
}

func TestValidateCommand_ValidFile(t *testing.T) {
	path := writeTestFile(t, "req.yaml", `
target_type: knowledge_graph
topic_name: go
input: "Go is a language"
`)

	stdout, _, err := executeCommand(newTestRoot(), "validate", path)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(stdout, "Valid!") {
		t.Errorf("expected 'Valid!' in output, got %q", stdout)
	}
}

func TestValidateCommand_InvalidFileFails(t *testing.T) {
	path := writeTestFile(t, "req.yaml", `
target_type: nonsense
`)

	stdout, _, err := executeCommand(newTestRoot(), "validate", path)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != exitValidation {
		t.Fatalf("expected validation exit code, got %v", err)
	}
	if !strings.Contains(stdout, "unknown target type") {
		t.Errorf("expected diagnostic in output, got %q", stdout)
	}
}

func TestValidateCommand_SchemaRejectsWrongTypes(t *testing.T) {
	path := writeTestFile(t, "req.yaml", `
target_type: personal_memory
chat_messages: not a list
user_id: 42
`)

	stdout, _, err := executeCommand(newTestRoot(), "validate", path)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != exitValidation {
		t.Fatalf("expected validation exit code, got %v", err)
	}
	if !strings.Contains(stdout, "chat_messages") {
		t.Errorf("expected chat_messages type diagnostic, got %q", stdout)
	}
	if !strings.Contains(stdout, "user_id") {
		t.Errorf("expected user_id type diagnostic, got %q", stdout)
	}
}

func TestSchemaDiagnostics(t *testing.T) {
	diags, err := schemaDiagnostics([]byte(`
target_type: knowledge_graph
files:
  - path: /tmp/doc.md
process_strategy:
  pipeline: [etl, graph_build]
`))
	if err != nil {
		t.Fatalf("schemaDiagnostics: %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("well-formed document produced diagnostics: %v", diags)
	}

	diags, err = schemaDiagnostics([]byte(`force_regenerate: "yes"`))
	if err != nil {
		t.Fatalf("schemaDiagnostics: %v", err)
	}
	if len(diags) != 1 || diags[0].Severity != severityError {
		t.Fatalf("expected one error diagnostic, got %v", diags)
	}
	if !strings.Contains(diags[0].Message, "force_regenerate") {
		t.Errorf("diagnostic should name the field, got %q", diags[0].Message)
	}

	diags, err = schemaDiagnostics([]byte(""))
	if err != nil {
		t.Fatalf("schemaDiagnostics(empty): %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("empty document produced diagnostics: %v", diags)
	}
}

func TestValidateCommand_StrictTreatsWarningsAsErrors(t *testing.T) {
	path := writeTestFile(t, "req.yaml", `
target_type: knowledge_graph
files:
  - path: /does/not/exist.md
`)

	// Without strict: warnings only, command succeeds.
	if _, _, err := executeCommand(newTestRoot(), "validate", path); err != nil {
		t.Fatalf("expected success without --strict, got %v", err)
	}

	// With strict: the warning fails the command.
	_, _, err := executeCommand(newTestRoot(), "validate", path, "--strict")
	if err == nil {
		t.Fatal("expected failure with --strict")
	}
}

func TestValidateCommand_JSONFormat(t *testing.T) {
	path := writeTestFile(t, "req.yaml", `
target_type: knowledge_graph
input: "text"
`)

	stdout, _, err := executeCommand(newTestRoot(), "validate", path, "--format", "json")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	var diags []Diagnostic
	if err := json.Unmarshal([]byte(stdout), &diags); err != nil {
		t.Fatalf("expected JSON array output, got %q: %v", stdout, err)
	}
	if len(diags) != 0 {
		t.Errorf("expected empty diagnostics, got %+v", diags)
	}
}

func TestToolsCommand_ListsFiveTools(t *testing.T) {
	stdout, _, err := executeCommand(newTestRoot(), "tools")
	if err != nil {
		t.Fatalf("tools: %v", err)
	}

	for _, name := range []string{
		config.ToolDocumentETL,
		config.ToolBlueprintGeneration,
		config.ToolGraphBuild,
		config.ToolMemoryGraphBuild,
		config.ToolKnowledgeBuilder,
	} {
		if !strings.Contains(stdout, name) {
			t.Errorf("expected tool %q in listing, got:\n%s", name, stdout)
		}
	}
}

func TestToolsCommand_JSONFormat(t *testing.T) {
	stdout, _, err := executeCommand(newTestRoot(), "tools", "--format", "json")
	if err != nil {
		t.Fatalf("tools: %v", err)
	}

	var infos []toolInfo
	if err := json.Unmarshal([]byte(stdout), &infos); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", stdout, err)
	}
	if len(infos) != 5 {
		t.Fatalf("expected 5 tools, got %d", len(infos))
	}
	kinds := map[string]bool{}
	for _, info := range infos {
		kinds[info.Kind] = true
	}
	if !kinds["etl"] || !kinds["graph_build"] {
		t.Errorf("expected etl and graph_build kinds, got %+v", kinds)
	}
}

func TestToolsCommand_UnknownFormat(t *testing.T) {
	_, _, err := executeCommand(newTestRoot(), "tools", "--format", "xml")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != exitInputParse {
		t.Fatalf("expected input parse exit code, got %v", err)
	}
}
