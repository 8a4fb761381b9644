// Package extract turns raw document bytes into plain-text sections ready
// for graph construction, and fingerprints content for reuse detection.
package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
)

// Section is one contiguous span of extracted text. Level is the heading
// depth that opened the section, zero for preamble text.
type Section struct {
	Heading string
	Level   int
	Text    string
}

// Document is the extraction result for one source file.
type Document struct {
	Title    string
	Sections []Section
	Hash     string
}

// Text returns the document's full text with sections joined by blank
// lines, headings included.
func (d *Document) Text() string {
	var b strings.Builder
	for i, s := range d.Sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if s.Heading != "" {
			b.WriteString(s.Heading)
			b.WriteString("\n")
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// Extractor converts one file format into a Document.
type Extractor interface {
	// Extract parses data into sections. name is the original filename,
	// used for title fallback.
	Extract(name string, data []byte) (*Document, error)

	// Supports reports whether the extractor handles the file extension
	// (lowercase, with leading dot).
	Supports(ext string) bool
}

// ForFile selects an extractor by file extension. Unknown extensions get
// the plain-text extractor.
func ForFile(path string, extractors ...Extractor) Extractor {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extractors {
		if e.Supports(ext) {
			return e
		}
	}
	return Text{}
}

// Default returns the built-in extractor set.
func Default() []Extractor {
	return []Extractor{Markdown{}, Text{}}
}

// Hash fingerprints content for duplicate detection.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Text extracts plain text files as a single untitled section.
type Text struct{}

// Extract returns the whole payload as one section.
func (Text) Extract(name string, data []byte) (*Document, error) {
	body := strings.TrimSpace(string(data))
	if body == "" {
		return nil, fmt.Errorf("extract: %s: empty document", name)
	}
	return &Document{
		Title:    titleFromName(name),
		Sections: []Section{{Text: body}},
		Hash:     Hash(data),
	}, nil
}

// Supports reports true for known plain-text extensions.
func (Text) Supports(ext string) bool {
	switch ext {
	case ".txt", ".text", ".log":
		return true
	}
	return false
}

func titleFromName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var (
	_ Extractor = Text{}
	_ Extractor = Markdown{}
)
