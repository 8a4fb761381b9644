// Package tools implements the built-in processing tools: document
// ingestion, blueprint generation, graph construction, memory graph
// construction, and direct knowledge building. Each tool validates its
// input against a JSON schema and reports domain failures through the
// result, reserving errors for unexpected faults.
package tools

import (
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// mustSchema compiles a schema literal at package init. The literals are
// constants, so a compile failure is a programming error.
func mustSchema(literal string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(literal))
	if err != nil {
		panic("tools: invalid input schema: " + err.Error())
	}
	return schema
}

// schemaValid validates a document map against a compiled schema.
func schemaValid(schema *gojsonschema.Schema, doc map[string]any, logger *slog.Logger) bool {
	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		logger.Warn("input schema validation errored", "error", err)
		return false
	}
	if !result.Valid() {
		for _, desc := range result.Errors() {
			logger.Debug("input schema violation", "violation", desc.String())
		}
		return false
	}
	return true
}

// parseTriplets parses completion output where each line carries one
// "subject|predicate|object" triple. Malformed lines are skipped.
func parseTriplets(output string) [][3]string {
	var out [][3]string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		if len(parts) != 3 {
			continue
		}
		s := strings.TrimSpace(parts[0])
		p := strings.TrimSpace(parts[1])
		o := strings.TrimSpace(parts[2])
		if s == "" || p == "" || o == "" {
			continue
		}
		out = append(out, [3]string{s, p, o})
	}
	return out
}

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
