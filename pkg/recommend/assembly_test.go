package recommend_test

import (
	"testing"

	"github.com/weldtech/sparky/pkg/domain"
	"github.com/weldtech/sparky/pkg/recommend"
)

func scoredProduct(gin string, cat domain.Category) recommend.Candidate {
	return recommend.Candidate{Product: domain.Product{GIN: gin, Category: cat, Name: gin}, Score: 0.9}
}

func TestAssembleTrinitiesCapsAtTwelve(t *testing.T) {
	ps := []recommend.Candidate{
		scoredProduct("ps1", domain.CategoryPowerSource),
		scoredProduct("ps2", domain.CategoryPowerSource),
		scoredProduct("ps3", domain.CategoryPowerSource),
		scoredProduct("ps4", domain.CategoryPowerSource),
	}
	fd := []recommend.Candidate{scoredProduct("fd1", domain.CategoryFeeder), scoredProduct("fd2", domain.CategoryFeeder)}
	cl := []recommend.Candidate{scoredProduct("cl1", domain.CategoryCooler), scoredProduct("cl2", domain.CategoryCooler)}

	packages := recommend.AssembleTrinities(ps, fd, cl)
	if len(packages) != 12 {
		t.Errorf("expected 12 packages (top-3 PS x 2 FD x 2 CL), got %d", len(packages))
	}
	for _, p := range packages {
		if !p.TrinityCompliance {
			t.Errorf("expected full trinities to be compliant: %+v", p)
		}
	}
}

func TestAssembleTrinitiesEmptyCategoryYieldsNoPackages(t *testing.T) {
	ps := []recommend.Candidate{scoredProduct("ps1", domain.CategoryPowerSource)}
	fd := []recommend.Candidate{scoredProduct("fd1", domain.CategoryFeeder)}
	cl := []recommend.Candidate{} // no coolers available

	packages := recommend.AssembleTrinities(ps, fd, cl)
	if len(packages) != 0 {
		t.Errorf("expected no packages when a category has zero candidates, got %d", len(packages))
	}
}

func TestConsolidateByCategoryKeepsHighestFrequency(t *testing.T) {
	products := []domain.Product{
		{GIN: "a", Category: domain.CategoryAccessory, SalesFrequency: 5},
		{GIN: "b", Category: domain.CategoryAccessory, SalesFrequency: 20},
		{GIN: "c", Category: domain.CategoryConsumable, SalesFrequency: 3},
	}
	out := recommend.ConsolidateByCategory(products)
	if len(out) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(out))
	}
	for _, p := range out {
		if p.Category == domain.CategoryAccessory && p.GIN != "b" {
			t.Errorf("expected highest-frequency accessory 'b', got %s", p.GIN)
		}
	}
}

func TestBackfillFromGoldenPackageFillsMissingCategories(t *testing.T) {
	existing := []domain.Product{
		{GIN: "ps", Category: domain.CategoryPowerSource},
		{GIN: "fd", Category: domain.CategoryFeeder},
	}
	golden := []domain.Product{
		{GIN: "cl", Category: domain.CategoryCooler},
		{GIN: "torch", Category: domain.CategoryTorch},
	}
	out := recommend.BackfillFromGoldenPackage(existing, golden, 4)
	if len(out) != 4 {
		t.Errorf("expected 4 products after backfill to target, got %d", len(out))
	}
}

func TestMostFrequentCompatiblePicksHighest(t *testing.T) {
	cands := []recommend.Candidate{
		{Product: domain.Product{GIN: "low", SalesFrequency: 2}},
		{Product: domain.Product{GIN: "high", SalesFrequency: 50}},
	}
	best, ok := recommend.MostFrequentCompatible(cands)
	if !ok || best.GIN != "high" {
		t.Errorf("expected 'high' to win, got %+v", best)
	}
}
