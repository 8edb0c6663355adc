package llm_test

import (
	"testing"

	"github.com/weldtech/sparky/pkg/llm"
)

func TestRepairJSONStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"processes\": [\"MIG\"]}\n```"
	repaired, ok := llm.ParseResult(raw)
	if !ok {
		t.Fatalf("expected valid JSON after repair, got %q", repaired)
	}
}

func TestRepairJSONRemovesTrailingCommas(t *testing.T) {
	raw := `{"processes": ["MIG",], "material": "aluminum",}`
	repaired, ok := llm.ParseResult(raw)
	if !ok {
		t.Fatalf("expected valid JSON after repair, got %q", repaired)
	}
}

func TestRepairJSONQuotesUnquotedKeys(t *testing.T) {
	raw := `{material: "aluminum", confidence: 0.8}`
	repaired, ok := llm.ParseResult(raw)
	if !ok {
		t.Fatalf("expected valid JSON after repair, got %q", repaired)
	}
}

func TestIsValidJSON(t *testing.T) {
	if !llm.IsValidJSON(`{"a":1}`) {
		t.Errorf("expected valid JSON")
	}
	if llm.IsValidJSON(`not json at all {{{`) {
		t.Errorf("expected invalid JSON")
	}
}

func TestSetDefaultOnlyFillsMissingPath(t *testing.T) {
	doc := `{"confidence": 0.9}`
	updated := llm.SetDefault(doc, "confidence", 0.1)
	if got := updated; got != doc {
		t.Errorf("SetDefault should not overwrite existing value, got %q", got)
	}
	updated = llm.SetDefault(doc, "completeness", 0.5)
	if updated == doc {
		t.Errorf("SetDefault should add missing path")
	}
}
