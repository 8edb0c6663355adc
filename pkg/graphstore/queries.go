package graphstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/weldtech/sparky/pkg/domain"
)

// ShortlistByFirstToken backs C4's stage-1 query: products in category
// whose lowercased name contains firstToken, ordered by sales frequency
// then name, limited to limit rows (spec.md §4.4).
func (s *neo4jStore) ShortlistByFirstToken(ctx context.Context, category domain.Category, firstToken string, limit int) ([]domain.Product, error) {
	rows, err := s.ExecuteQuery(ctx, `
		MATCH (p:Product {category: $category})
		WHERE toLower(p.name) CONTAINS toLower($firstToken)
		RETURN p
		ORDER BY p.sales_frequency DESC, p.name ASC
		LIMIT $limit`,
		map[string]any{"category": string(category), "firstToken": firstToken, "limit": int64(limit)})
	if err != nil {
		return nil, err
	}
	return rowsToProducts(rows, "p")
}

// VectorSearch runs CALL db.index.vector.queryNodes against indexName and
// applies the optional category/min-score post-filter (spec.md §4.3).
func (s *neo4jStore) VectorSearch(ctx context.Context, indexName string, k int, vector []float32, categoryFilter domain.Category, minScore float64) ([]domain.ScoredProduct, error) {
	rows, err := s.ExecuteQuery(ctx, fmt.Sprintf(`
		CALL db.index.vector.queryNodes($indexName, $k, $vector)
		YIELD node AS p, score
		WHERE ($category = '' OR p.category = $category) AND score >= $minScore
		RETURN p, score
		ORDER BY score DESC`),
		map[string]any{
			"indexName": indexName, "k": int64(k), "vector": vector,
			"category": string(categoryFilter), "minScore": minScore,
		})
	if err != nil {
		return nil, err
	}
	return rowsToScored(rows, "p", "score", "vector")
}

// HybridSearch composes vector similarity with normalized sales-frequency
// count (spec.md §4.3).
func (s *neo4jStore) HybridSearch(ctx context.Context, vector []float32, k int, categoryFilter domain.Category, vectorWeight, salesWeight float64) ([]domain.ScoredProduct, error) {
	rows, err := s.ExecuteQuery(ctx, `
		CALL db.index.vector.queryNodes($indexName, $k, $vector)
		YIELD node AS p, score AS vectorScore
		WHERE $category = '' OR p.category = $category
		OPTIONAL MATCH (t:Transaction)-[:CONTAINS]->(p)
		WITH p, vectorScore, count(t) AS salesCount
		WITH p, vectorScore, salesCount, max(salesCount) OVER () AS maxSales
		RETURN p,
		       ($vectorWeight * vectorScore + $salesWeight * (CASE WHEN maxSales = 0 THEN 0.0 ELSE toFloat(salesCount) / maxSales END)) AS score
		ORDER BY score DESC
		LIMIT $k`,
		map[string]any{
			"indexName": s.vectorIndexName, "k": int64(k), "vector": vector,
			"category": string(categoryFilter), "vectorWeight": vectorWeight, "salesWeight": salesWeight,
		})
	if err != nil {
		return nil, err
	}
	return rowsToScored(rows, "p", "score", "hybrid")
}

// ShortestPath traverses CO_OCCURS edges from startGIN toward a product of
// targetCategory, within maxHops (spec.md §4.3).
func (s *neo4jStore) ShortestPath(ctx context.Context, startGIN string, targetCategory domain.Category, maxHops int) ([]domain.ScoredProduct, error) {
	rows, err := s.ExecuteQuery(ctx, fmt.Sprintf(`
		MATCH (start:Product {gin: $startGin})
		MATCH path = (start)-[:CO_OCCURS*1..%d]-(target:Product {category: $targetCategory})
		WITH target, min(length(path)) AS hops
		RETURN target AS p, (1.0 / (1.0 + hops)) AS score
		ORDER BY score DESC`, maxHops),
		map[string]any{"startGin": startGIN, "targetCategory": string(targetCategory)})
	if err != nil {
		return nil, err
	}
	return rowsToScored(rows, "p", "score", "graph")
}

// PagerankPopular approximates popularity by combining direct sale count
// with the number of distinct co-purchased products in the same category
// (spec.md §4.3).
func (s *neo4jStore) PagerankPopular(ctx context.Context, category domain.Category, minSales int) ([]domain.ScoredProduct, error) {
	rows, err := s.ExecuteQuery(ctx, `
		MATCH (p:Product {category: $category})
		OPTIONAL MATCH (t:Transaction)-[:CONTAINS]->(p)
		WITH p, count(DISTINCT t) AS salesCount
		WHERE salesCount >= $minSales
		OPTIONAL MATCH (p)-[:CO_OCCURS]-(co:Product {category: $category})
		WITH p, salesCount, count(DISTINCT co) AS coPurchased
		RETURN p, (toFloat(salesCount) + toFloat(coPurchased)) AS score
		ORDER BY score DESC`,
		map[string]any{"category": string(category), "minSales": int64(minSales)})
	if err != nil {
		return nil, err
	}
	return rowsToScored(rows, "p", "score", "sales")
}

// Centrality ranks products by COMPATIBLE_WITH degree and the category
// diversity of their neighbours (spec.md §4.3).
func (s *neo4jStore) Centrality(ctx context.Context, category domain.Category, minConnections int) ([]domain.ScoredProduct, error) {
	rows, err := s.ExecuteQuery(ctx, `
		MATCH (p:Product {category: $category})-[:COMPATIBLE_WITH]-(n:Product)
		WITH p, count(DISTINCT n) AS degree, count(DISTINCT n.category) AS diversity
		WHERE degree >= $minConnections
		RETURN p, (toFloat(degree) + toFloat(diversity)) AS score
		ORDER BY score DESC`,
		map[string]any{"category": string(category), "minConnections": int64(minConnections)})
	if err != nil {
		return nil, err
	}
	return rowsToScored(rows, "p", "score", "graph")
}

// CompatibleComponents ranks sourceGIN's COMPATIBLE_WITH neighbours within
// category by sales frequency, used by expert package formation to pick
// "the most sales-frequent COMPATIBLE_WITH Feeder/Cooler" (spec.md
// §4.6.4 step 3).
func (s *neo4jStore) CompatibleComponents(ctx context.Context, sourceGIN string, category domain.Category) ([]domain.ScoredProduct, error) {
	rows, err := s.ExecuteQuery(ctx, `
		MATCH (source:Product {gin: $sourceGin})-[:COMPATIBLE_WITH]-(p:Product {category: $category})
		RETURN p, toFloat(p.sales_frequency) AS score
		ORDER BY score DESC`,
		map[string]any{"sourceGin": sourceGIN, "category": string(category)})
	if err != nil {
		return nil, err
	}
	return rowsToScored(rows, "p", "score", "compatible")
}

// CoOrderedProducts finds the products most frequently co-ordered with the
// given trinity's members, excluding the trinity members themselves
// (spec.md §4.6.4 step 3: "find the products most frequently co-ordered
// with it, excluding the trinity members").
func (s *neo4jStore) CoOrderedProducts(ctx context.Context, trinityGINs []string, limit int) ([]domain.ScoredProduct, error) {
	if len(trinityGINs) == 0 {
		return nil, nil
	}
	rows, err := s.ExecuteQuery(ctx, `
		MATCH (m:Product) WHERE m.gin IN $trinityGins
		MATCH (m)-[co:CO_OCCURS]-(p:Product)
		WHERE NOT p.gin IN $trinityGins
		WITH p, sum(co.frequency) AS score
		RETURN p, toFloat(score) AS score
		ORDER BY score DESC
		LIMIT $limit`,
		map[string]any{"trinityGins": trinityGINs, "limit": int64(limit)})
	if err != nil {
		return nil, err
	}
	return rowsToScored(rows, "p", "score", "co_occurs")
}

// ProductsByGINs resolves a set of GINs to their Product nodes, used to
// materialize a GoldenPackage's members for backfill (spec.md §4.6.4 step
// 3).
func (s *neo4jStore) ProductsByGINs(ctx context.Context, gins []string) ([]domain.Product, error) {
	if len(gins) == 0 {
		return nil, nil
	}
	rows, err := s.ExecuteQuery(ctx, `
		MATCH (p:Product) WHERE p.gin IN $gins
		RETURN p`,
		map[string]any{"gins": gins})
	if err != nil {
		return nil, err
	}
	return rowsToProducts(rows, "p")
}

// GoldenPackageFor looks up the curated fallback package keyed by a
// PowerSource GIN (spec.md §3 GoldenPackage, §4.6.4 step 3).
func (s *neo4jStore) GoldenPackageFor(ctx context.Context, powerSourceGIN string) (domain.GoldenPackage, bool, error) {
	rows, err := s.ExecuteQuery(ctx, `
		MATCH (gp:GoldenPackage {power_source_gin: $gin})-[:CONTAINS]->(p:Product)
		RETURN gp.power_source_gin AS ps, collect(p.gin) AS gins`,
		map[string]any{"gin": powerSourceGIN})
	if err != nil {
		return domain.GoldenPackage{}, false, err
	}
	if len(rows) == 0 {
		return domain.GoldenPackage{}, false, nil
	}
	gins, _ := rows[0]["gins"].([]any)
	productGINs := make([]string, 0, len(gins))
	for _, g := range gins {
		if s, ok := g.(string); ok {
			productGINs = append(productGINs, s)
		}
	}
	return domain.GoldenPackage{PowerSourceGIN: powerSourceGIN, ProductGINs: productGINs}, true, nil
}

// PropertySearch runs a parameterized property filter: category match plus
// description CONTAINS any one of the terms (spec.md §4.6.3 fallback path).
func (s *neo4jStore) PropertySearch(ctx context.Context, category domain.Category, terms []string) ([]domain.ScoredProduct, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	clauses := make([]string, 0, len(terms))
	params := map[string]any{"category": string(category)}
	for i, t := range terms {
		key := fmt.Sprintf("term%d", i)
		clauses = append(clauses, fmt.Sprintf("toLower(p.description) CONTAINS toLower($%s)", key))
		params[key] = t
	}

	rows, err := s.ExecuteQuery(ctx, fmt.Sprintf(`
		MATCH (p:Product {category: $category})
		WHERE %s
		RETURN p, 1.0 AS score
		ORDER BY p.sales_frequency DESC`, strings.Join(clauses, " OR ")),
		params)
	if err != nil {
		return nil, err
	}
	return rowsToScored(rows, "p", "score", "property")
}
