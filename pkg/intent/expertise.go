package intent

import (
	"regexp"
	"strings"

	"github.com/weldtech/sparky/pkg/vocabulary"
)

var (
	numericSpecRe   = regexp.MustCompile(`(?i)\d+\s*(amp|volt|watt|mm|cfh|ipm)`)
	specificModelRe = regexp.MustCompile(`(?i)\b[a-z]+\s?\d{2,4}\s?[a-z]{0,3}\b`)
)

var specificityWords = []string{"compatible", "replacement", "upgrade", "matching"}

// expertiseScores holds the four sub-scores spec.md §4.5 step 3 defines,
// before they are combined.
type expertiseScores struct {
	expertSignals float64
	complexity    float64
	historical    float64
	specificity   float64
}

// combine applies the fixed 0.4/0.3/0.2/0.1 weighting (spec.md §4.5 step
// 3).
func (e expertiseScores) combine() float64 {
	return 0.4*e.expertSignals + 0.3*e.complexity + 0.2*e.historical + 0.1*e.specificity
}

// scoreExpertSignals matches named models, acronyms, and technical phrases
// against C1's product-name/process/technical-term sets.
func scoreExpertSignals(query string, vocab *vocabulary.Vocabulary) float64 {
	if vocab == nil {
		return 0
	}
	matches := vocab.MatchTerms(query,
		vocabulary.CategoryProductNames, vocabulary.CategoryProcesses, vocabulary.CategoryTechnicalTerms)
	if len(matches) == 0 {
		return 0
	}
	score := float64(len(matches)) * 0.5
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// scoreComplexity considers query length, numeric specs, and multiple
// processes mentioned.
func scoreComplexity(query string, vocab *vocabulary.Vocabulary) float64 {
	score := 0.0
	words := strings.Fields(query)
	if len(words) >= 10 {
		score += 0.3
	} else if len(words) >= 6 {
		score += 0.15
	}
	if numericSpecRe.MatchString(query) {
		score += 0.4
	}
	if vocab != nil {
		processMatches := vocab.MatchTerms(query, vocabulary.CategoryProcesses)
		if len(processMatches) >= 2 {
			score += 0.3
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// scoreHistorical computes the expertise ratio over the last 10 previous
// queries: the fraction that themselves contain an expert signal.
func scoreHistorical(previousQueries []string, vocab *vocabulary.Vocabulary) float64 {
	if len(previousQueries) == 0 || vocab == nil {
		return 0
	}
	recent := previousQueries
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	expertCount := 0
	for _, q := range recent {
		if len(vocab.MatchTerms(q, vocabulary.CategoryProcesses, vocabulary.CategoryTechnicalTerms)) > 0 {
			expertCount++
		}
	}
	return float64(expertCount) / float64(len(recent))
}

// scoreSpecificity looks for specific-model regexes and words like
// "compatible"/"replacement".
func scoreSpecificity(query string) float64 {
	score := 0.0
	if specificModelRe.MatchString(query) {
		score += 0.75
	}
	lower := strings.ToLower(query)
	for _, w := range specificityWords {
		if strings.Contains(lower, w) {
			score += 0.25
			break
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// DetectMode computes the four expertise sub-scores, combines them, and
// selects EXPERT/GUIDED/HYBRID (spec.md §4.5 step 3).
func DetectMode(query string, previousQueries []string, vocab *vocabulary.Vocabulary, modeCfg *ModeDetectionConfig) (Mode, float64) {
	scores := expertiseScores{
		expertSignals: scoreExpertSignals(query, vocab),
		complexity:    scoreComplexity(query, vocab),
		historical:    scoreHistorical(previousQueries, vocab),
		specificity:   scoreSpecificity(query),
	}
	combined := scores.combine()

	lower := strings.ToLower(query)
	guidedSignalCount := 0
	beginnerPhrase := false
	if modeCfg != nil {
		guidedSignalCount = modeCfg.countMatches(lower, modeCfg.GuidedSignals)
		beginnerPhrase = modeCfg.hasBeginnerPhrase(lower)
	}

	if combined >= 0.7 {
		return ModeExpert, combined
	}
	if guidedSignalCount >= 2 || beginnerPhrase {
		return ModeGuided, combined
	}
	return ModeHybrid, combined
}
