// Package productsearch implements C4: a two-stage fuzzy product-name
// lookup within a category, grounded on the original Python
// product_search_engine's shortlist-then-score algorithm (spec.md §4.4).
package productsearch

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/weldtech/sparky/pkg/domain"
)

// Shortlister performs stage 1: products in a category whose lowercased
// name contains the given first token, ordered by sales frequency then
// name, limited to limit rows. Implemented by the graph store adapter.
type Shortlister interface {
	ShortlistByFirstToken(ctx context.Context, category domain.Category, firstToken string, limit int) ([]domain.Product, error)
}

// Engine runs the two-stage fuzzy match.
type Engine struct {
	store Shortlister
}

func NewEngine(store Shortlister) *Engine {
	return &Engine{store: store}
}

// tokenize splits name into lowercase tokens, discarding any token shorter
// than 2 characters unless it is purely numeric (spec.md §4.4: "Tokens of
// length <2 that are not digits are discarded").
func tokenize(name string) []string {
	fields := strings.Fields(strings.ToLower(name))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:()[]")
		if f == "" {
			continue
		}
		if len(f) >= 2 {
			out = append(out, f)
			continue
		}
		if _, err := strconv.Atoi(f); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// Search finds products in category matching name, scoring remaining
// tokens after a first-token shortlist (spec.md §4.4).
func (e *Engine) Search(ctx context.Context, category domain.Category, name string, requestedSize int) ([]domain.ScoredProduct, error) {
	tokens := tokenize(name)
	if len(tokens) == 0 {
		return nil, nil
	}

	limit := requestedSize * 2
	if limit < 2 {
		limit = 2
	}
	candidates, err := e.store.ShortlistByFirstToken(ctx, category, tokens[0], limit)
	if err != nil {
		return nil, err
	}

	remaining := tokens[1:]
	scored := make([]domain.ScoredProduct, 0, len(candidates))
	for _, p := range candidates {
		score, ok := scoreRemainingTokens(strings.ToLower(p.Name), remaining)
		if !ok {
			continue
		}
		scored = append(scored, domain.ScoredProduct{Product: p, Score: score, Source: "search"})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Product.SalesFrequency > scored[j].Product.SalesFrequency
	})

	if requestedSize > 0 && len(scored) > requestedSize {
		scored = scored[:requestedSize]
	}
	return scored, nil
}

// scoreRemainingTokens applies the priority-ordered scoring rules from
// spec.md §4.4 to the tokens beyond the one used for the shortlist query.
func scoreRemainingTokens(lowerName string, tokens []string) (float64, bool) {
	if len(tokens) == 0 {
		return 1.0, true
	}

	concatenated := strings.Join(tokens, "")
	if strings.Contains(lowerName, concatenated) {
		return 1.0, true
	}

	// The spaced form also splits tokens where digits meet letters, so
	// "400i" is looked up as "400 i".
	var sb strings.Builder
	prev := rune(0)
	for _, r := range strings.Join(tokens, " ") {
		if (unicode.IsDigit(prev) && unicode.IsLetter(r)) || (unicode.IsLetter(prev) && unicode.IsDigit(r)) {
			sb.WriteRune(' ')
		}
		sb.WriteRune(r)
		prev = r
	}
	spaced := sb.String()
	if strings.Contains(lowerName, spaced) {
		return 0.9, true
	}

	allPresent := true
	for _, t := range tokens {
		if !strings.Contains(lowerName, t) {
			allPresent = false
			break
		}
	}
	if allPresent {
		return 0.8, true
	}

	// Partial credit: count 2-token concatenations present anywhere in the
	// name and scale proportionally between 0.6 and 0.8.
	if len(tokens) >= 2 {
		pairsPresent := 0
		totalPairs := len(tokens) - 1
		for i := 0; i < len(tokens)-1; i++ {
			pair := tokens[i] + tokens[i+1]
			if strings.Contains(lowerName, pair) {
				pairsPresent++
			}
		}
		if pairsPresent > 0 {
			fraction := float64(pairsPresent) / float64(totalPairs)
			return 0.6 + fraction*0.2, true
		}
	}

	return 0, false
}
