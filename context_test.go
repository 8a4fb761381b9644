package loom

import "testing"

func TestNewContext(t *testing.T) {
	c := NewContext()

	if c == nil {
		t.Fatal("NewContext() returned nil")
	}
	if c.Metadata == nil {
		t.Error("NewContext().Metadata is nil")
	}
}

func TestContext_Clone(t *testing.T) {
	isNew := true
	original := NewContext().
		WithTarget(TargetKnowledgeGraph).
		WithTopic("release-notes").
		WithFiles(FileRef{Path: "/tmp/a.md", Name: "a.md"})
	original.Metadata["author"] = "ops"
	original.SourceDataIDs = []string{"sd-1", "sd-2"}
	original.ChatMessages = []Message{{Role: "user", Content: "hi"}}
	original.IsNewTopic = &isNew
	original.Strategy = &ProcessStrategy{Pipeline: []string{"etl"}}

	clone := original.Clone()

	if clone == original {
		t.Fatal("Clone() returned same instance")
	}
	if clone.TopicName != "release-notes" {
		t.Errorf("Clone().TopicName = %q, want %q", clone.TopicName, "release-notes")
	}

	// Maps and slices must be independent.
	clone.Metadata["author"] = "other"
	if original.Metadata["author"] != "ops" {
		t.Error("mutating clone Metadata affected original")
	}

	clone.SourceDataIDs = append(clone.SourceDataIDs, "sd-3")
	clone.SourceDataIDs[0] = "changed"
	if original.SourceDataIDs[0] != "sd-1" || len(original.SourceDataIDs) != 2 {
		t.Error("mutating clone SourceDataIDs affected original")
	}

	clone.Files[0].Path = "/tmp/b.md"
	if original.Files[0].Path != "/tmp/a.md" {
		t.Error("mutating clone Files affected original")
	}

	*clone.IsNewTopic = false
	if !*original.IsNewTopic {
		t.Error("mutating clone IsNewTopic affected original")
	}

	clone.Strategy.Pipeline[0] = "graph_build"
	if original.Strategy.Pipeline[0] != "etl" {
		t.Error("mutating clone Strategy.Pipeline affected original")
	}
}

func TestContext_Clone_Nil(t *testing.T) {
	var c *Context
	if c.Clone() != nil {
		t.Error("Clone() of nil should return nil")
	}
}
