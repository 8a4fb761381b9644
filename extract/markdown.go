package extract

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Markdown extracts markdown files into heading-delimited sections. The
// first heading becomes the document title; fenced code blocks are kept
// verbatim inside their section.
type Markdown struct{}

// Supports reports true for markdown extensions.
func (Markdown) Supports(ext string) bool {
	switch ext {
	case ".md", ".markdown", ".mdown":
		return true
	}
	return false
}

// Extract parses the markdown AST and flattens it into sections.
func (Markdown) Extract(name string, data []byte) (*Document, error) {
	root := goldmark.DefaultParser().Parse(text.NewReader(data))

	doc := &Document{Hash: Hash(data)}
	current := Section{}
	flush := func() {
		current.Text = strings.TrimSpace(current.Text)
		if current.Text != "" || current.Heading != "" {
			doc.Sections = append(doc.Sections, current)
		}
	}

	for c := root.FirstChild(); c != nil; c = c.NextSibling() {
		if h, ok := c.(*ast.Heading); ok {
			flush()
			heading := blockText(h, data)
			if doc.Title == "" {
				doc.Title = heading
			}
			current = Section{Heading: heading, Level: h.Level}
			continue
		}
		if t := blockText(c, data); t != "" {
			if current.Text != "" {
				current.Text += "\n\n"
			}
			current.Text += t
		}
	}
	flush()

	if doc.Title == "" {
		doc.Title = titleFromName(name)
	}
	if len(doc.Sections) == 0 {
		return nil, fmt.Errorf("extract: %s: empty document", name)
	}
	return doc, nil
}

// blockText collects the raw text of a block node. Container blocks
// (lists, quotes) carry no lines of their own, so recursion gathers their
// children instead.
func blockText(node ast.Node, source []byte) string {
	if lines := node.Lines(); lines != nil && lines.Len() > 0 {
		var b strings.Builder
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			b.WriteString(strings.TrimRight(string(line.Value(source)), "\n"))
			if i < lines.Len()-1 {
				b.WriteString("\n")
			}
		}
		return b.String()
	}

	var parts []string
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		if t := blockText(c, source); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}
