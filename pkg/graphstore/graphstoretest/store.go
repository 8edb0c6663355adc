// Package graphstoretest provides a configurable in-memory Store fake for
// tests that exercise the pipeline above the graph adapter.
package graphstoretest

import (
	"context"
	"sort"
	"strings"

	"github.com/weldtech/sparky/pkg/domain"
	"github.com/weldtech/sparky/pkg/graphstore"
)

// Store is an in-memory graphstore.Store. Populate Products and the
// per-category result maps; unset operations return empty results.
type Store struct {
	Products []domain.Product

	VectorResults   map[domain.Category][]domain.ScoredProduct
	PathResults     map[domain.Category][]domain.ScoredProduct
	PagerankResults map[domain.Category][]domain.ScoredProduct
	Compatible      map[string]map[domain.Category][]domain.ScoredProduct
	CoOrdered       []domain.ScoredProduct
	GoldenPackages  map[string]domain.GoldenPackage

	HealthErr error

	// QueryFn, when set, answers ExecuteQuery; loader tests use it to
	// serve catalog and relationship lookups.
	QueryFn func(stmt string, params map[string]any) ([]map[string]any, error)

	// Writes records every batch-write statement for loader tests.
	Writes []graphstore.Statement
}

var _ graphstore.Store = (*Store)(nil)

func (s *Store) ExecuteQuery(ctx context.Context, stmt string, params map[string]any) ([]map[string]any, error) {
	if s.QueryFn != nil {
		return s.QueryFn(stmt, params)
	}
	return nil, nil
}

func (s *Store) ExecuteWrite(ctx context.Context, stmt string, params map[string]any) error {
	s.Writes = append(s.Writes, graphstore.Statement{Cypher: stmt, Params: params})
	return nil
}

func (s *Store) ExecuteBatchWrite(ctx context.Context, statements []graphstore.Statement) error {
	s.Writes = append(s.Writes, statements...)
	return nil
}

// ShortlistByFirstToken mirrors the real adapter's stage-1 contract:
// category filter, case-insensitive containment, sales-frequency order.
func (s *Store) ShortlistByFirstToken(ctx context.Context, category domain.Category, firstToken string, limit int) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range s.Products {
		if p.Category != category {
			continue
		}
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(firstToken)) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SalesFrequency != out[j].SalesFrequency {
			return out[i].SalesFrequency > out[j].SalesFrequency
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) VectorSearch(ctx context.Context, indexName string, k int, vector []float32, categoryFilter domain.Category, minScore float64) ([]domain.ScoredProduct, error) {
	return capped(s.VectorResults[categoryFilter], k), nil
}

func (s *Store) HybridSearch(ctx context.Context, vector []float32, k int, categoryFilter domain.Category, vectorWeight, salesWeight float64) ([]domain.ScoredProduct, error) {
	return capped(s.VectorResults[categoryFilter], k), nil
}

func (s *Store) ShortestPath(ctx context.Context, startGIN string, targetCategory domain.Category, maxHops int) ([]domain.ScoredProduct, error) {
	return s.PathResults[targetCategory], nil
}

func (s *Store) PagerankPopular(ctx context.Context, category domain.Category, minSales int) ([]domain.ScoredProduct, error) {
	return s.PagerankResults[category], nil
}

func (s *Store) Centrality(ctx context.Context, category domain.Category, minConnections int) ([]domain.ScoredProduct, error) {
	return s.PagerankResults[category], nil
}

func (s *Store) PropertySearch(ctx context.Context, category domain.Category, terms []string) ([]domain.ScoredProduct, error) {
	var out []domain.ScoredProduct
	for _, p := range s.Products {
		if p.Category != category {
			continue
		}
		desc := strings.ToLower(p.Description)
		for _, t := range terms {
			if t != "" && strings.Contains(desc, strings.ToLower(t)) {
				out = append(out, domain.ScoredProduct{Product: p, Score: 0.5, Source: "property"})
				break
			}
		}
	}
	return out, nil
}

func (s *Store) CompatibleComponents(ctx context.Context, sourceGIN string, category domain.Category) ([]domain.ScoredProduct, error) {
	if byCat, ok := s.Compatible[sourceGIN]; ok {
		return byCat[category], nil
	}
	return nil, nil
}

func (s *Store) CoOrderedProducts(ctx context.Context, trinityGINs []string, limit int) ([]domain.ScoredProduct, error) {
	return capped(s.CoOrdered, limit), nil
}

func (s *Store) ProductsByGINs(ctx context.Context, gins []string) ([]domain.Product, error) {
	want := map[string]bool{}
	for _, g := range gins {
		want[g] = true
	}
	var out []domain.Product
	for _, p := range s.Products {
		if want[p.GIN] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) GoldenPackageFor(ctx context.Context, powerSourceGIN string) (domain.GoldenPackage, bool, error) {
	gp, ok := s.GoldenPackages[powerSourceGIN]
	return gp, ok, nil
}

func (s *Store) HealthCheck(ctx context.Context) error { return s.HealthErr }
func (s *Store) Close(ctx context.Context) error       { return nil }

func capped(in []domain.ScoredProduct, k int) []domain.ScoredProduct {
	if k > 0 && len(in) > k {
		return in[:k]
	}
	return in
}
