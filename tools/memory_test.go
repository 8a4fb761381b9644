package tools

import (
	"context"
	"testing"

	"github.com/loomworks/loom"
	"github.com/loomworks/loom/store"
)

var conversation = []loom.Message{
	{Role: "user", Content: "I moved to Berlin last month"},
	{Role: "assistant", Content: "How are you finding it?"},
	{Role: "user", Content: "Great, I work at a database company now"},
}

func TestMemoryGraphBuild_Process(t *testing.T) {
	fs := newFakeStore()
	client := &fakeLLM{text: "u-1|lives_in|Berlin\nu-1|works_at|database company"}
	m := NewMemoryGraphBuild(fs, fs, client, "test-model", nil)

	res, err := m.Execute(context.Background(), loom.MemoryInput{
		ChatMessages: conversation,
		UserID:       "u-1",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("failed: %s", res.ErrorMessage)
	}

	data := res.Data.(loom.MemoryData)
	if data.UserID != "u-1" || data.MessageCount != 3 || data.SourceDataID == "" {
		t.Errorf("data = %+v", data)
	}
	if len(fs.triplets) != 2 {
		t.Errorf("stored facts = %d, want 2", len(fs.triplets))
	}
	if _, ok := fs.batches[data.SourceDataID]; !ok {
		t.Error("batch should be recorded")
	}
}

func TestMemoryGraphBuild_ReusesProcessedBatch(t *testing.T) {
	fs := newFakeStore()
	fs.batches["conv-1"] = store.MemoryBatch{
		SourceDataID: "conv-1", UserID: "u-1", MessageCount: 3,
	}
	client := &fakeLLM{text: "should not run"}
	m := NewMemoryGraphBuild(fs, fs, client, "test-model", nil)

	res, err := m.Execute(context.Background(), loom.MemoryInput{
		ChatMessages: conversation,
		UserID:       "u-1",
		SourceID:     "conv-1",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	data := res.Data.(loom.MemoryData)
	if !data.ReusedExisting {
		t.Error("processed batch should be reused")
	}
	if client.requests != 0 {
		t.Error("reuse must not call the model")
	}
}

func TestMemoryGraphBuild_ForceRegenerate(t *testing.T) {
	fs := newFakeStore()
	fs.batches["conv-1"] = store.MemoryBatch{SourceDataID: "conv-1", UserID: "u-1"}
	client := &fakeLLM{text: "u-1|likes|go"}
	m := NewMemoryGraphBuild(fs, fs, client, "test-model", nil)

	res, err := m.Execute(context.Background(), loom.MemoryInput{
		ChatMessages:    conversation,
		UserID:          "u-1",
		SourceID:        "conv-1",
		ForceRegenerate: true,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	data := res.Data.(loom.MemoryData)
	if data.ReusedExisting {
		t.Error("force_regenerate should bypass reuse")
	}
	if client.requests != 1 {
		t.Errorf("model calls = %d, want 1", client.requests)
	}
}

func TestMemoryGraphBuild_ValidateInput(t *testing.T) {
	m := NewMemoryGraphBuild(newFakeStore(), newFakeStore(), &fakeLLM{}, "m", nil)

	if m.ValidateInput(loom.MemoryInput{UserID: "u-1"}) {
		t.Error("missing messages must be rejected")
	}
	if m.ValidateInput(loom.MemoryInput{ChatMessages: conversation}) {
		t.Error("missing user id must be rejected")
	}
	if !m.ValidateInput(loom.MemoryInput{ChatMessages: conversation, UserID: "u-1"}) {
		t.Error("complete input should validate")
	}
}
