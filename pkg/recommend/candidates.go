package recommend

import (
	"context"

	"github.com/weldtech/sparky/pkg/domain"
	"github.com/weldtech/sparky/pkg/embedding"
	"github.com/weldtech/sparky/pkg/graphstore"
	"github.com/weldtech/sparky/pkg/intent"
	"github.com/weldtech/sparky/pkg/productsearch"
)

const (
	vectorIndexName   = "product_embeddings"
	maxPowerSources   = 3
	maxFeedersCoolers = 2
	candidatesPerCat  = 10
)

// Collaborators bundles the read-only services candidate gathering calls.
type Collaborators struct {
	Store    graphstore.Store
	Embedder embedding.Service
	Search   *productsearch.Engine
}

// GatherPowerSources implements spec.md §4.6.3 step 1: product-specific
// match first, then vector search, then a parameterized property search.
// Guided-flow requests blend vector similarity with sales frequency
// (hybrid_search) so novices land on proven, popular machines rather than
// pure semantic neighbors.
func GatherPowerSources(ctx context.Context, c Collaborators, strategy Strategy, req Request) ([]Candidate, string, error) {
	if tok, ok := MentionsProductFamily(req.RawQuery); ok {
		results, err := c.Search.Search(ctx, domain.CategoryPowerSource, tok, candidatesPerCat)
		if err == nil && len(results) > 0 {
			return results, "search", nil
		}
	}

	if c.Embedder != nil {
		seedText := SemanticSeedQuery(req.Intent.Processes)
		vec, err := c.Embedder.EmbedQuery(ctx, seedText)
		if err == nil {
			var results []Candidate
			source := "vector"
			if strategy == StrategyGuidedFlow {
				results, err = c.Store.HybridSearch(ctx, vec, candidatesPerCat, domain.CategoryPowerSource, 0.6, 0.4)
				source = "hybrid_search"
			} else {
				results, err = c.Store.VectorSearch(ctx, vectorIndexName, candidatesPerCat, vec, domain.CategoryPowerSource, 0)
			}
			if err == nil && len(results) > 0 {
				return results, source, nil
			}
		}
	}

	terms := propertyTerms(req.Intent)
	if len(terms) > 0 {
		results, err := c.Store.PropertySearch(ctx, domain.CategoryPowerSource, terms)
		if err == nil && len(results) > 0 {
			return results, "property", nil
		}
	}

	return nil, "none", nil
}

// propertyTerms collects the detected process/material/industry terms
// used by the property-search fallback (spec.md §4.6.3).
func propertyTerms(in intent.ProcessedIntent) []string {
	var terms []string
	terms = append(terms, in.Processes...)
	if in.Material != "" {
		terms = append(terms, in.Material)
	}
	if in.Industry != "" {
		terms = append(terms, in.Industry)
	}
	return terms
}

// GatherComponent fetches Feeder/Cooler candidates for a PowerSource
// according to the chosen strategy (spec.md §4.6.3 step 2), deduplicated
// by GIN and capped at candidatesPerCat.
func GatherComponent(ctx context.Context, c Collaborators, strategy Strategy, powerSourceGIN string, category domain.Category) ([]Candidate, error) {
	var results []Candidate
	var err error

	switch strategy {
	case StrategyGraphFocused:
		results, err = c.Store.ShortestPath(ctx, powerSourceGIN, category, 2)
		if err == nil && len(results) < candidatesPerCat {
			topUps, topErr := c.Store.PagerankPopular(ctx, category, 1)
			if topErr == nil {
				results = append(results, topUps...)
			}
		}
	default:
		results, err = c.Store.ShortestPath(ctx, powerSourceGIN, category, 2)
		if err != nil || len(results) == 0 {
			results, err = c.Store.PagerankPopular(ctx, category, 0)
		}
	}
	if err != nil {
		return nil, err
	}

	return dedupeByGIN(results, candidatesPerCat), nil
}

func dedupeByGIN(in []Candidate, limit int) []Candidate {
	seen := make(map[string]bool, len(in))
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		if seen[c.Product.GIN] {
			continue
		}
		seen[c.Product.GIN] = true
		out = append(out, c)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func topN(cands []Candidate, n int) []Candidate {
	if len(cands) <= n {
		return cands
	}
	return cands[:n]
}
