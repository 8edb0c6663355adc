package recommend

import (
	"strings"

	"github.com/weldtech/sparky/pkg/intent"
)

// trinityTriggerWords mark a query as wanting the Trinity-first semantic
// path attempted before strategy-specific candidate gathering (spec.md
// §4.6.2).
var trinityTriggerWords = []string{"package", "kit", "setup", "complete", "system"}

// productFamilyTokens are the tokens that make C4 the first PowerSource
// candidate source rather than vector search (spec.md §4.6.3).
var productFamilyTokens = []string{"aristo", "warrior", "renegade", "rebel", "flextec", "idealarc"}

// SelectStrategy implements the single decision function of spec.md
// §4.6.1.
func SelectStrategy(in intent.ProcessedIntent, rawQuery string, guidedFlow *intent.ModeDetectionConfig) Strategy {
	if guidedFlow != nil && guidedFlow.MatchesGuidedFlow(rawQuery) {
		return StrategyGuidedFlow
	}
	if in.ExpertiseMode == intent.ModeExpert && in.Confidence > 0.7 {
		return StrategyGraphFocused
	}
	return StrategyHybrid
}

// WantsTrinityFirst reports whether the raw query contains a Trinity-first
// trigger word (spec.md §4.6.2).
func WantsTrinityFirst(rawQuery string) bool {
	lower := strings.ToLower(rawQuery)
	for _, w := range trinityTriggerWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// MentionsProductFamily reports whether the raw query names a known
// PowerSource family, and returns the matched token.
func MentionsProductFamily(rawQuery string) (string, bool) {
	lower := strings.ToLower(rawQuery)
	for _, tok := range productFamilyTokens {
		if strings.Contains(lower, tok) {
			return tok, true
		}
	}
	return "", false
}

// SemanticSeedQuery builds the category-specific semantic query text used
// when falling through to vector search for PowerSources (spec.md
// §4.6.3): "TIG welder" when TIG appears in the processes, otherwise
// "welding power source".
func SemanticSeedQuery(processes []string) string {
	for _, p := range processes {
		if strings.EqualFold(p, "TIG") {
			return "TIG welder"
		}
	}
	return "welding power source"
}
