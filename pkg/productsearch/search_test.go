package productsearch_test

import (
	"context"
	"testing"

	"github.com/weldtech/sparky/pkg/domain"
	"github.com/weldtech/sparky/pkg/productsearch"
)

type fakeShortlister struct {
	products []domain.Product
}

func (f *fakeShortlister) ShortlistByFirstToken(ctx context.Context, category domain.Category, firstToken string, limit int) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range f.products {
		if p.Category != category {
			continue
		}
		out = append(out, p)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func TestSearchConcatenatedMatchScoresHighest(t *testing.T) {
	store := &fakeShortlister{products: []domain.Product{
		{GIN: "1", Name: "Warrior 400i", Category: domain.CategoryPowerSource, SalesFrequency: 5},
		{GIN: "2", Name: "Warrior 400 i Deluxe", Category: domain.CategoryPowerSource, SalesFrequency: 10},
		{GIN: "3", Name: "Warrior Accessories Kit", Category: domain.CategoryPowerSource, SalesFrequency: 1},
	}}
	engine := productsearch.NewEngine(store)

	results, err := engine.Search(context.Background(), domain.CategoryPowerSource, "warrior 400i", 5)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("expected results")
	}
	if results[0].Product.GIN != "1" || results[0].Score != 1.0 {
		t.Errorf("expected GIN 1 scored 1.0 first, got %+v", results[0])
	}
}

func TestSearchSpacedMatchScoresLowerThanConcatenated(t *testing.T) {
	store := &fakeShortlister{products: []domain.Product{
		{GIN: "spaced", Name: "Warrior 400 i", Category: domain.CategoryPowerSource},
	}}
	engine := productsearch.NewEngine(store)
	results, err := engine.Search(context.Background(), domain.CategoryPowerSource, "warrior 400i", 5)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 1 || results[0].Score != 0.9 {
		t.Errorf("expected spaced match scored 0.9, got %+v", results)
	}
}

func TestSearchDropsNonMatches(t *testing.T) {
	store := &fakeShortlister{products: []domain.Product{
		{GIN: "nope", Name: "Warrior Welding Gloves", Category: domain.CategoryPowerSource},
	}}
	engine := productsearch.NewEngine(store)
	results, err := engine.Search(context.Background(), domain.CategoryPowerSource, "warrior 400i", 5)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no matches, got %+v", results)
	}
}

func TestSearchEmptyNameReturnsNil(t *testing.T) {
	engine := productsearch.NewEngine(&fakeShortlister{})
	results, err := engine.Search(context.Background(), domain.CategoryPowerSource, "", 5)
	if err != nil || results != nil {
		t.Errorf("expected (nil, nil) for empty name, got (%v, %v)", results, err)
	}
}
