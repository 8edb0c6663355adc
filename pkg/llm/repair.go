package llm

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	codeFenceRe     = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
	unquotedKeyRe   = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)
)

// RepairJSON tolerantly cleans up an LLM's JSON response: strips code
// fences, removes trailing commas, and quotes unquoted keys (spec.md §4.5
// step 5). It does not attempt to fix unbalanced braces.
func RepairJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = unquotedKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	return strings.TrimSpace(s)
}

// IsValidJSON reports whether s parses as JSON at all.
func IsValidJSON(s string) bool {
	return gjson.Valid(s)
}

// ParseResult walks raw through RepairJSON and reports the repaired string
// plus whether it is now valid JSON, so callers can decide whether to
// retry the LLM call once before giving up (spec.md §4.5 step 5).
func ParseResult(raw string) (repaired string, ok bool) {
	repaired = RepairJSON(raw)
	return repaired, gjson.Valid(repaired)
}

// SetDefault fills path in doc with value only if the path is currently
// absent, used when normalizing a partially-populated extraction result.
func SetDefault(doc, path string, value any) string {
	if gjson.Get(doc, path).Exists() {
		return doc
	}
	updated, err := sjson.Set(doc, path, value)
	if err != nil {
		return doc
	}
	return updated
}
