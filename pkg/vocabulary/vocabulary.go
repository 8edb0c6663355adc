// Package vocabulary implements C1: a static, weighted domain vocabulary
// loaded once at startup and consulted by the embedding service and the
// intent processor (spec.md §4.1). It never mutates after Load.
package vocabulary

import (
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/weldtech/sparky/internal/errors"
)

// Category names the six weighted term buckets spec.md §4.1 defines.
type Category string

const (
	CategoryProductNames   Category = "product_names"
	CategoryProcesses      Category = "processes"
	CategoryTechnicalTerms Category = "technical_terms"
	CategoryMaterials      Category = "materials"
	CategoryApplications   Category = "applications"
	CategoryGeneralTerms   Category = "general_terms"
)

var orderedCategories = []Category{
	CategoryProductNames, CategoryProcesses, CategoryTechnicalTerms,
	CategoryMaterials, CategoryApplications, CategoryGeneralTerms,
}

type termSection struct {
	Weight float64  `yaml:"weight"`
	Terms  []string `yaml:"terms"`
}

type rawVocabulary struct {
	ProductNames    termSection       `yaml:"product_names"`
	Processes       termSection       `yaml:"processes"`
	TechnicalTerms  termSection       `yaml:"technical_terms"`
	Materials       termSection       `yaml:"materials"`
	Applications    termSection       `yaml:"applications"`
	GeneralTerms    termSection       `yaml:"general_terms"`
	ProcessAliases map[string]string `yaml:"process_aliases"`
	MaterialsEnum  []string          `yaml:"materials_enum"`
	IndustriesEnum []string          `yaml:"industries_enum"`
}

// Vocabulary is the immutable, loaded set of weighted domain terms.
type Vocabulary struct {
	sections       map[Category]termSection
	processAliases map[string]string
	materialsEnum  map[string]bool
	industriesEnum map[string]bool
}

// Load reads and parses the YAML vocabulary file referenced by
// config.VocabularyPath.
func Load(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FailedToWithDetails("load vocabulary", "vocabulary", path, err)
	}

	var raw rawVocabulary
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.ParseError(path, "yaml", err)
	}

	v := &Vocabulary{
		sections: map[Category]termSection{
			CategoryProductNames:   raw.ProductNames,
			CategoryProcesses:      raw.Processes,
			CategoryTechnicalTerms: raw.TechnicalTerms,
			CategoryMaterials:      raw.Materials,
			CategoryApplications:   raw.Applications,
			CategoryGeneralTerms:   raw.GeneralTerms,
		},
		processAliases: make(map[string]string, len(raw.ProcessAliases)),
		materialsEnum:  make(map[string]bool, len(raw.MaterialsEnum)),
		industriesEnum: make(map[string]bool, len(raw.IndustriesEnum)),
	}
	for k, val := range raw.ProcessAliases {
		v.processAliases[strings.ToLower(k)] = val
	}
	for _, m := range raw.MaterialsEnum {
		v.materialsEnum[strings.ToLower(m)] = true
	}
	for _, i := range raw.IndustriesEnum {
		v.industriesEnum[strings.ToLower(i)] = true
	}

	if err := v.validate(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Vocabulary) validate() error {
	for _, cat := range orderedCategories {
		sec := v.sections[cat]
		if sec.Weight <= 0 {
			return errors.ConfigurationError(string(cat)+".weight", "must be positive")
		}
	}
	return nil
}

// Enhance appends a weighted repetition/expansion of every matched term in
// text, biasing downstream embeddings toward domain-critical tokens without
// changing embedding dimensionality (spec.md §4.1).
func (v *Vocabulary) Enhance(text string) string {
	lower := strings.ToLower(text)
	var additions []string

	for _, cat := range orderedCategories {
		sec := v.sections[cat]
		for _, term := range sec.Terms {
			lowTerm := strings.ToLower(term)
			if !strings.Contains(lower, lowTerm) {
				continue
			}
			repeats := weightToRepeats(sec.Weight)
			switch cat {
			case CategoryProductNames:
				for i := 0; i < repeats; i++ {
					additions = append(additions, term)
				}
			case CategoryProcesses:
				additions = append(additions, term+" welding process")
				for i := 1; i < repeats; i++ {
					additions = append(additions, term)
				}
			default:
				for i := 0; i < repeats; i++ {
					additions = append(additions, term)
				}
			}
		}
	}

	if len(additions) == 0 {
		return text
	}
	return text + " " + strings.Join(additions, " ")
}

// weightToRepeats converts a term weight into an integer repetition count,
// at least 1 and capped at 3 so enhancement never runs away on dense text.
func weightToRepeats(weight float64) int {
	n := int(weight)
	if n < 1 {
		n = 1
	}
	if n > 3 {
		n = 3
	}
	return n
}

// PrimaryProcesses returns the enumerated canonical process names (the
// distinct values process_aliases maps onto), sorted for determinism.
func (v *Vocabulary) PrimaryProcesses() []string {
	seen := make(map[string]bool)
	for _, canon := range v.processAliases {
		seen[canon] = true
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// TechnicalProcesses returns the raw acronym/phrase terms tagged as
// "processes" in the vocabulary (e.g. GMAW, GTAW), as opposed to the
// canonical process names PrimaryProcesses returns.
func (v *Vocabulary) TechnicalProcesses() []string {
	sec := v.sections[CategoryProcesses]
	out := append([]string(nil), sec.Terms...)
	sort.Strings(out)
	return out
}

// Materials returns the enumerated valid material names.
func (v *Vocabulary) Materials() []string {
	out := make([]string, 0, len(v.materialsEnum))
	for m := range v.materialsEnum {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Industries returns the enumerated valid industry names.
func (v *Vocabulary) Industries() []string {
	out := make([]string, 0, len(v.industriesEnum))
	for i := range v.industriesEnum {
		out = append(out, i)
	}
	sort.Strings(out)
	return out
}

// IsValidMaterial reports whether m (case-insensitive) is in the enum.
func (v *Vocabulary) IsValidMaterial(m string) bool {
	return v.materialsEnum[strings.ToLower(strings.TrimSpace(m))]
}

// IsValidIndustry reports whether i (case-insensitive) is in the enum.
func (v *Vocabulary) IsValidIndustry(i string) bool {
	return v.industriesEnum[strings.ToLower(strings.TrimSpace(i))]
}

// NormalizeProcess maps a loose process string (e.g. "gmaw", "pulse
// welding") to its canonical enum value (e.g. "MIG"), per spec.md §4.1/§9.
// Returns ("", false) when the string is not a recognized alias or already
// a canonical value.
func (v *Vocabulary) NormalizeProcess(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canon, ok := v.processAliases[key]; ok {
		return canon, true
	}
	for _, canon := range v.processAliases {
		if strings.EqualFold(canon, raw) {
			return canon, true
		}
	}
	return "", false
}

// MatchTerms returns every product-name/process/technical-term that
// appears in text, used by the intent processor's expert-signal detection
// (spec.md §4.5 step 3).
func (v *Vocabulary) MatchTerms(text string, categories ...Category) []string {
	if len(categories) == 0 {
		categories = []Category{CategoryProductNames, CategoryProcesses, CategoryTechnicalTerms}
	}
	lower := strings.ToLower(text)
	var matches []string
	for _, cat := range categories {
		for _, term := range v.sections[cat].Terms {
			if strings.Contains(lower, strings.ToLower(term)) {
				matches = append(matches, term)
			}
		}
	}
	return matches
}
