package recommend

import (
	"context"

	"github.com/weldtech/sparky/pkg/domain"
)

// coOrderedAccessoryLimit caps how many co-ordered products the expert
// package formation step considers before consolidating by category
// (spec.md §4.6.4 step 3).
const coOrderedAccessoryLimit = 20

// ExpertPackageFormation implements spec.md §4.6.4 step 3: pick the most
// sales-frequent COMPATIBLE_WITH Feeder and Cooler for the PowerSource,
// find the products most frequently co-ordered with that trinity
// (excluding its own members), consolidate to one product per category,
// and backfill from the matching GoldenPackage until the package reaches
// targetCategories distinct categories (at least 7 when possible).
//
// It is run for EXPERT and HYBRID modes only (spec.md §4.6.4 step 3); a
// GUIDED-mode caller should not invoke this.
func ExpertPackageFormation(ctx context.Context, c Collaborators, golden GoldenPackageBackfiller, powerSource domain.Product, targetCategories int) ([]domain.Product, error) {
	feederCands, err := c.Store.CompatibleComponents(ctx, powerSource.GIN, domain.CategoryFeeder)
	if err != nil {
		return nil, err
	}
	coolerCands, err := c.Store.CompatibleComponents(ctx, powerSource.GIN, domain.CategoryCooler)
	if err != nil {
		return nil, err
	}

	// A PowerSource with no authored compatibility rules still gets expert
	// treatment: the best-connected component by compatibility centrality
	// stands in for the missing rule set.
	if len(feederCands) == 0 {
		feederCands, _ = c.Store.Centrality(ctx, domain.CategoryFeeder, 1)
	}
	if len(coolerCands) == 0 {
		coolerCands, _ = c.Store.Centrality(ctx, domain.CategoryCooler, 1)
	}

	trinity := []domain.Product{powerSource}
	trinityGINs := []string{powerSource.GIN}
	if feeder, ok := MostFrequentCompatible(feederCands); ok {
		trinity = append(trinity, feeder)
		trinityGINs = append(trinityGINs, feeder.GIN)
	}
	if cooler, ok := MostFrequentCompatible(coolerCands); ok {
		trinity = append(trinity, cooler)
		trinityGINs = append(trinityGINs, cooler.GIN)
	}

	coOrdered, err := c.Store.CoOrderedProducts(ctx, trinityGINs, coOrderedAccessoryLimit)
	if err != nil {
		return nil, err
	}
	extras := make([]domain.Product, 0, len(coOrdered))
	for _, co := range coOrdered {
		extras = append(extras, co.Product)
	}

	members := append(append([]domain.Product(nil), trinity...), ConsolidateByCategory(extras)...)
	members = ConsolidateByCategory(members)

	if len(members) >= targetCategories || golden == nil {
		return members, nil
	}

	goldenPkg, found, err := golden.GoldenPackageFor(ctx, powerSource.GIN)
	if err != nil || !found || len(goldenPkg.ProductGINs) == 0 {
		return members, nil
	}
	goldenProducts, err := c.Store.ProductsByGINs(ctx, goldenPkg.ProductGINs)
	if err != nil {
		return members, nil
	}

	return BackfillFromGoldenPackage(members, goldenProducts, targetCategories), nil
}
