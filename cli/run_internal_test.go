package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loomworks/loom"
)

func TestWriteResult_JSON(t *testing.T) {
	cmd := NewRunCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := cmd.Flags().Set("format", "json"); err != nil {
		t.Fatal(err)
	}

	res := loom.Success(nil)
	res.ExecutionID = "exec-7"
	res.DurationSeconds = 1.5
	res.WithMetadata("topic_name", "go")

	if err := writeResult(cmd, res); err != nil {
		t.Fatalf("writeResult: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	if decoded["success"] != true {
		t.Error("expected success true")
	}
	if decoded["execution_id"] != "exec-7" {
		t.Errorf("expected execution_id 'exec-7', got %v", decoded["execution_id"])
	}
	if _, ok := decoded["error"]; ok {
		t.Error("expected no error key on success")
	}
}

func TestWriteResult_JSONIncludesPerToolResults(t *testing.T) {
	cmd := NewRunCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := cmd.Flags().Set("format", "json"); err != nil {
		t.Fatal(err)
	}

	set := loom.NewResultSet()
	etl := loom.Success(loom.IngestData{SourceDataIDs: []string{"sd-1"}})
	etl.ExecutionID = "exec-3_DocumentETL"
	set.Add("DocumentETL", etl)

	res := loom.Success(loom.PipelineData{
		Results:  set,
		Pipeline: []string{"DocumentETL"},
	})
	res.ExecutionID = "exec-3"

	if err := writeResult(cmd, res); err != nil {
		t.Fatalf("writeResult: %v", err)
	}

	var decoded struct {
		Data struct {
			Results map[string]struct {
				Success bool `json:"success"`
				Data    struct {
					SourceDataIDs []string `json:"source_data_ids"`
				} `json:"data"`
			} `json:"results"`
			Pipeline []string `json:"pipeline"`
		} `json:"data"`
	}
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}

	step, ok := decoded.Data.Results["DocumentETL"]
	if !ok {
		t.Fatalf("per-tool results missing DocumentETL entry: %s", out.String())
	}
	if !step.Success {
		t.Error("expected DocumentETL entry marked successful")
	}
	if len(step.Data.SourceDataIDs) != 1 || step.Data.SourceDataIDs[0] != "sd-1" {
		t.Errorf("expected source data ids [sd-1], got %v", step.Data.SourceDataIDs)
	}
}

func TestWriteResult_JSONIncludesPreviousResultsOnFailure(t *testing.T) {
	cmd := NewRunCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := cmd.Flags().Set("format", "json"); err != nil {
		t.Fatal(err)
	}

	prior := loom.NewResultSet()
	prior.Add("DocumentETL", loom.Success(loom.IngestData{SourceDataIDs: []string{"sd-1"}}))

	res := loom.Failure("tool GraphBuild failed")
	res.Data = loom.FailureData{FailedTool: "GraphBuild", PreviousResults: prior}

	if err := writeResult(cmd, res); err != nil {
		t.Fatalf("writeResult: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, `"failed_tool": "GraphBuild"`) {
		t.Errorf("expected failed tool in output, got %s", text)
	}
	if !strings.Contains(text, "sd-1") {
		t.Errorf("expected previous step result in output, got %s", text)
	}
}

func TestWriteResult_Text(t *testing.T) {
	cmd := NewRunCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := cmd.Flags().Set("format", "text"); err != nil {
		t.Fatal(err)
	}

	if err := writeResult(cmd, loom.Failure("blueprint missing")); err != nil {
		t.Fatalf("writeResult: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "failed: blueprint missing" {
		t.Errorf("expected failure line, got %q", got)
	}
}

func TestWriteResult_Pretty(t *testing.T) {
	cmd := NewRunCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	res := loom.Failure("no sources")
	res.ExecutionID = "exec-9"

	if err := writeResult(cmd, res); err != nil {
		t.Fatalf("writeResult: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "Status: failed") {
		t.Errorf("expected failed status in pretty output, got %q", text)
	}
	if !strings.Contains(text, "no sources") {
		t.Errorf("expected error message in pretty output, got %q", text)
	}
	if !strings.Contains(text, "exec-9") {
		t.Errorf("expected execution id in pretty output, got %q", text)
	}
}

func TestWriteResult_UnknownFormat(t *testing.T) {
	cmd := NewRunCmd()
	if err := cmd.Flags().Set("format", "csv"); err != nil {
		t.Fatal(err)
	}

	err := writeResult(cmd, loom.Success(nil))
	var exitErr *ExitError
	if !errors.As(err, &exitErr) || exitErr.Code != exitInputParse {
		t.Fatalf("expected input parse exit code, got %v", err)
	}
}

func TestWriteResult_OutputFile(t *testing.T) {
	cmd := NewRunCmd()
	path := filepath.Join(t.TempDir(), "result.txt")
	if err := cmd.Flags().Set("format", "text"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("output", path); err != nil {
		t.Fatal(err)
	}

	if err := writeResult(cmd, loom.Success(nil)); err != nil {
		t.Fatalf("writeResult: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output file: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "ok" {
		t.Errorf("expected 'ok' in output file, got %q", got)
	}
}
