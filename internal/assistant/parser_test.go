package assistant

import (
	"testing"

	"github.com/shelfwise/shelfwise/internal/apperr"
	"github.com/shelfwise/shelfwise/internal/types"
)

func TestParseStripsCodeFences(t *testing.T) {
	p := NewParser()

	raw := "```json\n{\"queryType\": \"MY_BOOK_COUNT\", \"parameters\": {}}\n```"
	intent, err := p.Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if intent.QueryType != types.QueryMyBookCount {
		t.Errorf("QueryType = %q, want %q", intent.QueryType, types.QueryMyBookCount)
	}
}

func TestParseCaseInsensitiveKeys(t *testing.T) {
	p := NewParser()

	intent, err := p.Parse(`{"QUERYTYPE": "EXPENSIVE_BOOKS", "Parameters": {"Limit": 3}}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if intent.QueryType != types.QueryExpensiveBooks {
		t.Errorf("QueryType = %q, want EXPENSIVE_BOOKS", intent.QueryType)
	}
	if intent.Parameters.Limit == nil || *intent.Parameters.Limit != 3 {
		t.Errorf("Limit = %v, want 3", intent.Parameters.Limit)
	}
}

func TestParseParameters(t *testing.T) {
	p := NewParser()

	intent, err := p.Parse(`{"queryType": "BOOKS_BY_GENRE", "parameters": {"genre": "Fiction", "status": "Reading"}}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if intent.Parameters.Genre != "Fiction" {
		t.Errorf("Genre = %q, want Fiction", intent.Parameters.Genre)
	}
	if intent.Parameters.Status != "Reading" {
		t.Errorf("Status = %q, want Reading", intent.Parameters.Status)
	}
}

func TestParseRejections(t *testing.T) {
	p := NewParser()

	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not json", "the user wants their book count"},
		{"missing query type", `{"parameters": {"limit": 5}}`},
		{"blank query type", `{"queryType": "  "}`},
		{"non-string query type", `{"queryType": 7}`},
		{"non-integer limit", `{"queryType": "EXPENSIVE_BOOKS", "parameters": {"limit": "five"}}`},
		{"truncated", `{"queryType": "MY_BOOK`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Parse(tc.raw)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want validation error", tc.raw)
			}
			if !apperr.IsValidation(err) {
				t.Errorf("Parse(%q) error = %v, want ValidationError", tc.raw, err)
			}
		})
	}
}

func TestParsePassesUnknownTypeThrough(t *testing.T) {
	// Unknown types are a dispatch concern; the parser only checks shape.
	p := NewParser()

	intent, err := p.Parse(`{"queryType": "DELETE_EVERYTHING"}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if intent.QueryType != "DELETE_EVERYTHING" {
		t.Errorf("QueryType = %q, want raw value preserved", intent.QueryType)
	}
}
