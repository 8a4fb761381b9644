package tools

import (
	"context"
	"testing"

	"github.com/loomworks/loom"
)

func TestKnowledgeBuilder_BlocksFromSections(t *testing.T) {
	fs := newFakeStore()
	kb := NewKnowledgeBuilder(fs, nil)
	path := writeTempFile(t, "guide.md", "# Intro\n\none\n\n## Setup\n\ntwo\n\n## Usage\n\nthree")

	res, err := kb.Execute(context.Background(), loom.KnowledgeInput{
		SourcePath: path,
		Attributes: map[string]any{"topic_name": "guide"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("failed: %s", res.ErrorMessage)
	}

	data := res.Data.(loom.KnowledgeData)
	if data.KnowledgeBlocksCount != 3 {
		t.Errorf("KnowledgeBlocksCount = %d, want one per section", data.KnowledgeBlocksCount)
	}
	if len(data.SourceIDs) != 1 {
		t.Errorf("SourceIDs = %v", data.SourceIDs)
	}
	if fs.sources[data.SourceIDs[0]].TopicName != "guide" {
		t.Error("topic attribute should flow to the stored source")
	}
}

func TestKnowledgeBuilder_BatchFiles(t *testing.T) {
	fs := newFakeStore()
	kb := NewKnowledgeBuilder(fs, nil)
	a := writeTempFile(t, "a.md", "# A\n\none")
	b := writeTempFile(t, "b.md", "# B\n\ntwo")

	res, err := kb.Execute(context.Background(), loom.KnowledgeInput{
		Files: []loom.FileRef{{Path: a}, {Path: b}},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	data := res.Data.(loom.KnowledgeData)
	if len(data.SourceIDs) != 2 || data.KnowledgeBlocksCount != 2 {
		t.Errorf("data = %+v", data)
	}
}

func TestKnowledgeBuilder_MissingFile(t *testing.T) {
	kb := NewKnowledgeBuilder(newFakeStore(), nil)

	res, err := kb.Execute(context.Background(), loom.KnowledgeInput{SourcePath: "/ghost.md"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success {
		t.Error("missing file is a domain failure")
	}
}

func TestKnowledgeBuilder_ValidateInput(t *testing.T) {
	kb := NewKnowledgeBuilder(newFakeStore(), nil)

	if kb.ValidateInput(loom.KnowledgeInput{}) {
		t.Error("empty input must be rejected")
	}
	if !kb.ValidateInput(loom.KnowledgeInput{SourcePath: "/tmp/doc.md"}) {
		t.Error("source path should validate")
	}
}
