// Package assistant implements the query pipeline around the language
// model: intent parsing, dispatch to the analytic handlers, the cache gate
// in front of the model call, and invalidation on writes.
package assistant

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/shelfwise/shelfwise/internal/apperr"
	"github.com/shelfwise/shelfwise/internal/types"
)

// intentSchema describes the structural shape of a model reply. Field names
// are matched case-insensitively by the decoder, so the schema constrains
// types only; presence of queryType is checked after decoding.
const intentSchema = `{
	"type": "object",
	"properties": {
		"queryType": {"type": "string"},
		"parameters": {
			"type": "object",
			"properties": {
				"limit":  {"type": "integer"},
				"genre":  {"type": "string"},
				"status": {"type": "string"}
			}
		}
	}
}`

// Parser validates and decodes raw model text into a QueryIntent.
type Parser struct {
	schema *gojsonschema.Schema
}

// NewParser compiles the intent schema. The schema is a constant, so a
// compile failure is a programming error and panics at startup.
func NewParser() *Parser {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(intentSchema))
	if err != nil {
		panic("assistant: compile intent schema: " + err.Error())
	}
	return &Parser{schema: schema}
}

// stripCodeFences removes markdown code fence markers the model tends to
// wrap JSON replies in.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// Parse turns raw model text into a validated intent. Keys are matched
// case-insensitively. A malformed payload or a missing queryType is a
// ValidationError; an unknown query type value is accepted here and
// rejected at dispatch.
func (p *Parser) Parse(raw string) (*types.QueryIntent, error) {
	cleaned := stripCodeFences(raw)
	if cleaned == "" {
		return nil, apperr.NewValidation("could not understand the query")
	}

	result, err := p.schema.Validate(gojsonschema.NewStringLoader(cleaned))
	if err != nil {
		slog.Error("intent payload is not valid JSON", "raw", raw, "error", err)
		return nil, apperr.NewValidation("could not understand the query")
	}
	if !result.Valid() {
		slog.Error("intent payload failed schema validation", "raw", raw, "violations", schemaViolations(result))
		return nil, apperr.NewValidation("could not understand the query")
	}

	var intent types.QueryIntent
	if err := json.Unmarshal([]byte(cleaned), &intent); err != nil {
		slog.Error("intent payload undecodable", "raw", raw, "error", err)
		return nil, apperr.NewValidation("could not understand the query")
	}

	if strings.TrimSpace(string(intent.QueryType)) == "" {
		return nil, apperr.NewValidation("could not understand the query")
	}

	return &intent, nil
}

func schemaViolations(result *gojsonschema.Result) []string {
	var msgs []string
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return msgs
}
