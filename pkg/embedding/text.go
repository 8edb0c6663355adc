// Package embedding implements C2: turning a Product or a free-text query
// into a fixed-dimension vector suitable for the graph store's vector index
// (spec.md §4.2).
package embedding

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/weldtech/sparky/pkg/domain"
)

const maxSpecValueLen = 500

var unitNormalizations = map[string]string{
	"amperes": "amp",
	"amp":     "amp",
	"amps":    "amp",
	"a":       "amp",
	"volts":   "volt",
	"volt":    "volt",
	"v":       "volt",
	"watts":   "watt",
	"watt":    "watt",
	"w":       "watt",
	"millimeters": "mm",
	"millimeter":  "mm",
	"mm":          "mm",
	"inches": "in",
	"inch":   "in",
}

var unitToken = regexp.MustCompile(`(?i)\b(amperes?|amps?|a|volts?|v|watts?|w|millimeters?|mm|inches?|in)\b`)

// StripHTML removes markup from s, leaving plain text, using goquery the way
// a browser's text-extraction would (teacher's documented pattern for
// cleaning externally-sourced descriptions).
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// NormalizeUnits rewrites standalone unit tokens (A/V/W/mm/in and their long
// forms) to a single canonical short form so "400 amps" and "400 A" embed
// identically. A unit written against its number, as in "400A", is not a
// separate token and is left unchanged.
func NormalizeUnits(s string) string {
	return unitToken.ReplaceAllStringFunc(s, func(tok string) string {
		if canon, ok := unitNormalizations[strings.ToLower(tok)]; ok {
			return canon
		}
		return tok
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// isMeaningfulToken reports whether a name token should contribute to the
// embedding text: at least 2 characters, and not purely numeric.
func isMeaningfulToken(tok string) bool {
	if len(tok) < 2 {
		return false
	}
	if _, err := strconv.ParseFloat(tok, 64); err == nil {
		return false
	}
	return true
}

// BuildProductText assembles the comprehensive textual representation of a
// product: meaningful name tokens, category, every flattened specification
// (HTML-stripped, unit-normalized, truncated at 500 chars), and the cleaned
// description (spec.md §4.2).
func BuildProductText(p domain.Product) string {
	var parts []string

	for _, tok := range strings.Fields(p.Name) {
		clean := strings.Trim(tok, ".,;:()[]")
		if isMeaningfulToken(clean) {
			parts = append(parts, clean)
		}
	}

	if p.Category != "" {
		parts = append(parts, string(p.Category))
	}
	if p.Subcategory != "" {
		parts = append(parts, p.Subcategory)
	}

	specKeys := make([]string, 0, len(p.Specifications))
	for k := range p.Specifications {
		specKeys = append(specKeys, k)
	}
	sort.Strings(specKeys)
	for _, k := range specKeys {
		v := p.Specifications[k]
		v = StripHTML(v)
		v = NormalizeUnits(v)
		v = truncate(v, maxSpecValueLen)
		if v == "" {
			continue
		}
		parts = append(parts, k+" "+v)
	}

	if p.Description != "" {
		desc := NormalizeUnits(StripHTML(p.Description))
		parts = append(parts, desc)
	}

	return strings.Join(parts, " ")
}

// CleanQueryText normalizes whitespace in a raw user query prior to
// enhancement and embedding (spec.md §4.2: embed_query "cleans whitespace").
func CleanQueryText(q string) string {
	fields := strings.Fields(q)
	return strings.Join(fields, " ")
}

