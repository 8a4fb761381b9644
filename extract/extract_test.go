package extract

import (
	"strings"
	"testing"
)

func TestTextExtract(t *testing.T) {
	doc, err := Text{}.Extract("notes.txt", []byte("  hello world  \n"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if doc.Title != "notes" {
		t.Errorf("Title = %q, want notes", doc.Title)
	}
	if len(doc.Sections) != 1 || doc.Sections[0].Text != "hello world" {
		t.Errorf("Sections = %+v", doc.Sections)
	}
	if doc.Hash == "" {
		t.Error("Hash should be set")
	}
}

func TestTextExtract_Empty(t *testing.T) {
	if _, err := (Text{}).Extract("empty.txt", []byte("   ")); err == nil {
		t.Fatal("empty document should be rejected")
	}
}

func TestMarkdownExtract(t *testing.T) {
	src := `# TiDB Overview

TiDB is a distributed SQL database.

## Architecture

It separates compute from storage.

- PD manages placement
- TiKV stores data
`
	doc, err := Markdown{}.Extract("overview.md", []byte(src))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if doc.Title != "TiDB Overview" {
		t.Errorf("Title = %q, want first heading", doc.Title)
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("Sections = %d, want 2: %+v", len(doc.Sections), doc.Sections)
	}
	if doc.Sections[0].Level != 1 || doc.Sections[1].Level != 2 {
		t.Errorf("levels = %d, %d", doc.Sections[0].Level, doc.Sections[1].Level)
	}
	if !strings.Contains(doc.Sections[0].Text, "distributed SQL database") {
		t.Errorf("section 0 = %q", doc.Sections[0].Text)
	}
	if !strings.Contains(doc.Sections[1].Text, "PD manages placement") {
		t.Errorf("list items should be collected: %q", doc.Sections[1].Text)
	}
}

func TestMarkdownExtract_NoHeading(t *testing.T) {
	doc, err := Markdown{}.Extract("readme.md", []byte("just a paragraph"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if doc.Title != "readme" {
		t.Errorf("Title = %q, want filename fallback", doc.Title)
	}
	if len(doc.Sections) != 1 || doc.Sections[0].Heading != "" {
		t.Errorf("Sections = %+v", doc.Sections)
	}
}

func TestDocumentText(t *testing.T) {
	doc := &Document{Sections: []Section{
		{Heading: "Intro", Text: "a"},
		{Text: "b"},
	}}
	want := "Intro\na\n\nb"
	if got := doc.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestForFile(t *testing.T) {
	if _, ok := ForFile("doc.md", Default()...).(Markdown); !ok {
		t.Error("markdown files should select the markdown extractor")
	}
	if _, ok := ForFile("doc.pdf", Default()...).(Text); !ok {
		t.Error("unknown extensions fall back to plain text")
	}
}

func TestHashStable(t *testing.T) {
	a, b := Hash([]byte("same")), Hash([]byte("same"))
	if a != b {
		t.Error("identical content must hash identically")
	}
	if a == Hash([]byte("different")) {
		t.Error("different content must not collide here")
	}
}
