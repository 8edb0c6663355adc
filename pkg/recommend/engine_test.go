package recommend_test

import (
	"context"
	"testing"

	"github.com/weldtech/sparky/internal/config"
	"github.com/weldtech/sparky/pkg/domain"
	"github.com/weldtech/sparky/pkg/graphstore"
	"github.com/weldtech/sparky/pkg/intent"
	"github.com/weldtech/sparky/pkg/productsearch"
	"github.com/weldtech/sparky/pkg/recommend"
)

type fakeStore struct {
	vectorResults map[domain.Category][]domain.ScoredProduct
	shortestPath  map[domain.Category][]domain.ScoredProduct
	pagerank      map[domain.Category][]domain.ScoredProduct
}

func (f *fakeStore) ExecuteQuery(ctx context.Context, stmt string, params map[string]any) ([]map[string]any, error) {
	return nil, nil
}
func (f *fakeStore) ExecuteWrite(ctx context.Context, stmt string, params map[string]any) error {
	return nil
}
func (f *fakeStore) ExecuteBatchWrite(ctx context.Context, statements []graphstore.Statement) error {
	return nil
}
func (f *fakeStore) ShortlistByFirstToken(ctx context.Context, category domain.Category, firstToken string, limit int) ([]domain.Product, error) {
	return nil, nil
}
func (f *fakeStore) VectorSearch(ctx context.Context, indexName string, k int, vector []float32, categoryFilter domain.Category, minScore float64) ([]domain.ScoredProduct, error) {
	return f.vectorResults[categoryFilter], nil
}
func (f *fakeStore) HybridSearch(ctx context.Context, vector []float32, k int, categoryFilter domain.Category, vectorWeight, salesWeight float64) ([]domain.ScoredProduct, error) {
	return nil, nil
}
func (f *fakeStore) ShortestPath(ctx context.Context, startGIN string, targetCategory domain.Category, maxHops int) ([]domain.ScoredProduct, error) {
	return f.shortestPath[targetCategory], nil
}
func (f *fakeStore) PagerankPopular(ctx context.Context, category domain.Category, minSales int) ([]domain.ScoredProduct, error) {
	return f.pagerank[category], nil
}
func (f *fakeStore) Centrality(ctx context.Context, category domain.Category, minConnections int) ([]domain.ScoredProduct, error) {
	return nil, nil
}
func (f *fakeStore) PropertySearch(ctx context.Context, category domain.Category, terms []string) ([]domain.ScoredProduct, error) {
	return nil, nil
}
func (f *fakeStore) CompatibleComponents(ctx context.Context, sourceGIN string, category domain.Category) ([]domain.ScoredProduct, error) {
	return nil, nil
}
func (f *fakeStore) CoOrderedProducts(ctx context.Context, trinityGINs []string, limit int) ([]domain.ScoredProduct, error) {
	return nil, nil
}
func (f *fakeStore) ProductsByGINs(ctx context.Context, gins []string) ([]domain.Product, error) {
	return nil, nil
}
func (f *fakeStore) GoldenPackageFor(ctx context.Context, powerSourceGIN string) (domain.GoldenPackage, bool, error) {
	return domain.GoldenPackage{}, false, nil
}
func (f *fakeStore) HealthCheck(ctx context.Context) error { return nil }
func (f *fakeStore) Close(ctx context.Context) error       { return nil }

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedProduct(ctx context.Context, p domain.Product) ([]float32, string, error) {
	return make([]float32, 384), "", nil
}
func (fakeEmbedder) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	return make([]float32, 384), nil
}

func newTestCollaborators(store *fakeStore) recommend.Collaborators {
	return recommend.Collaborators{
		Store:    store,
		Embedder: fakeEmbedder{},
		Search:   productsearch.NewEngine(store),
	}
}

func TestEngineReturnsNeedsFollowUpWhenEverythingIsEmpty(t *testing.T) {
	store := &fakeStore{}
	engine := recommend.NewEngine(newTestCollaborators(store), nil, config.RecommendConfig{GoldenBackfillTarget: 7}, nil)

	result := engine.Recommend(context.Background(), recommend.Request{
		Intent:   intent.ProcessedIntent{ExpertiseMode: intent.ModeHybrid},
		RawQuery: "asdf qwerty",
	})

	if !result.NeedsFollowUp {
		t.Errorf("expected needs_follow_up=true for an empty catalog")
	}
	if len(result.Packages) != 0 {
		t.Errorf("expected no packages, got %d", len(result.Packages))
	}
}

func TestEngineHybridQueryProducesPackages(t *testing.T) {
	ps := domain.Product{GIN: "ps1", Name: "Warrior 400i", Category: domain.CategoryPowerSource, SalesFrequency: 50}
	fd := domain.Product{GIN: "fd1", Name: "Feeder One", Category: domain.CategoryFeeder, SalesFrequency: 30}
	cl := domain.Product{GIN: "cl1", Name: "Cooler One", Category: domain.CategoryCooler, SalesFrequency: 20}

	store := &fakeStore{
		vectorResults: map[domain.Category][]domain.ScoredProduct{
			domain.CategoryPowerSource: {{Product: ps, Score: 0.9, Source: "vector"}},
		},
		shortestPath: map[domain.Category][]domain.ScoredProduct{
			domain.CategoryFeeder: {{Product: fd, Score: 0.8, Source: "graph"}},
			domain.CategoryCooler: {{Product: cl, Score: 0.7, Source: "graph"}},
		},
	}
	engine := recommend.NewEngine(newTestCollaborators(store), nil, config.RecommendConfig{GoldenBackfillTarget: 7}, nil)

	result := engine.Recommend(context.Background(), recommend.Request{
		Intent:   intent.ProcessedIntent{ExpertiseMode: intent.ModeHybrid, Processes: []string{"MIG"}},
		RawQuery: "Looking for MIG welding setup for aluminum automotive parts",
	})

	if len(result.Packages) == 0 {
		t.Fatalf("expected at least one package")
	}
	top := result.Packages[0]
	if !top.TrinityCompliance {
		t.Errorf("expected top package to be trinity-compliant: %+v", top)
	}
}
