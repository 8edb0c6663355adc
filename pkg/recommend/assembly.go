package recommend

import (
	"context"

	"github.com/weldtech/sparky/pkg/domain"
)

// AssembleTrinities builds the cross-product of top-3 PowerSources x
// top-2 Feeders x top-2 Coolers, capped at 12 packages (spec.md §4.6.4).
func AssembleTrinities(powerSources, feeders, coolers []Candidate) []Package {
	ps := topN(powerSources, maxPowerSources)
	fd := topN(feeders, maxFeedersCoolers)
	cl := topN(coolers, maxFeedersCoolers)

	var packages []Package
	for _, p := range ps {
		for _, f := range fd {
			for _, c := range cl {
				if len(packages) >= 12 {
					return packages
				}
				packages = append(packages, buildPackage(p, f, c))
			}
		}
	}
	return packages
}

func buildPackage(ps, fd, cl Candidate) Package {
	present := 0
	if ps.Product.GIN != "" {
		present++
	}
	if fd.Product.GIN != "" {
		present++
	}
	if cl.Product.GIN != "" {
		present++
	}
	compliance := float64(present) / 3.0

	categories := map[domain.Category]bool{ps.Product.Category: true, fd.Product.Category: true, cl.Product.Category: true}
	distinct := len(categories) == 3

	return Package{
		PowerSource:       ps.Product,
		Feeder:            fd.Product,
		Cooler:            cl.Product,
		PowerSourceScore:  ps.Score,
		FeederScore:       fd.Score,
		CoolerScore:       cl.Score,
		TrinityCompliance: present == 3 && distinct,
		ComplianceScore:   compliance,
	}
}

// GoldenPackageBackfiller looks up the curated fallback package for a
// PowerSource GIN (spec.md §4.6.4 expert-mode extension, §9 Open
// Questions: backfill target is configurable).
type GoldenPackageBackfiller interface {
	GoldenPackageFor(ctx context.Context, powerSourceGIN string) (domain.GoldenPackage, bool, error)
}

// MostFrequentCompatible picks the most sales-frequent COMPATIBLE_WITH
// component for a PowerSource within a category, used by expert package
// formation (spec.md §4.6.4 step 3).
func MostFrequentCompatible(candidates []Candidate) (domain.Product, bool) {
	if len(candidates) == 0 {
		return domain.Product{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Product.SalesFrequency > best.Product.SalesFrequency {
			best = c
		}
	}
	return best.Product, true
}

// ConsolidateByCategory keeps at most one product per category, the
// highest-frequency one (spec.md §4.6.4 step 3).
func ConsolidateByCategory(products []domain.Product) []domain.Product {
	best := make(map[domain.Category]domain.Product)
	for _, p := range products {
		existing, ok := best[p.Category]
		if !ok || p.SalesFrequency > existing.SalesFrequency {
			best[p.Category] = p
		}
	}
	out := make([]domain.Product, 0, len(best))
	for _, p := range best {
		out = append(out, p)
	}
	return out
}

// BackfillFromGoldenPackage fills missing categories from goldenGins'
// products (resolved by the caller) until the package has at least
// targetCategories distinct categories, or the golden package is
// exhausted (spec.md §4.6.4 step 3, §9: target is configuration, not a
// constant).
func BackfillFromGoldenPackage(existing []domain.Product, goldenCandidates []domain.Product, targetCategories int) []domain.Product {
	present := make(map[domain.Category]bool)
	for _, p := range existing {
		present[p.Category] = true
	}
	out := append([]domain.Product(nil), existing...)
	for _, g := range goldenCandidates {
		if len(present) >= targetCategories {
			break
		}
		if present[g.Category] {
			continue
		}
		present[g.Category] = true
		out = append(out, g)
	}
	return out
}
