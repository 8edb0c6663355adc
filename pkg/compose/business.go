package compose

import (
	"sort"
	"strings"

	"github.com/weldtech/sparky/pkg/domain"
	"github.com/weldtech/sparky/pkg/recommend"
)

// reRank recomputes each package's score as a weighted blend of its
// original engine score and a business-context factor, then re-sorts.
func reRank(packages []recommend.Package, preferredManufacturers []string, organization string) []recommend.Package {
	out := make([]recommend.Package, len(packages))
	for i, pkg := range packages {
		business := businessFactor(pkg, preferredManufacturers, organization)
		pkg.Score = originalScoreWeight*pkg.Score + businessScoreWeight*business
		if pkg.Score > 1.0 {
			pkg.Score = 1.0
		}
		out[i] = pkg
	}

	sortByScoreDesc(out)
	return out
}

// businessFactor combines preferred-manufacturer share, organization tier
// fit, and a Trinity-compliance bonus into a single [0,1] factor.
func businessFactor(pkg recommend.Package, preferredManufacturers []string, organization string) float64 {
	factor := preferredManufacturerShare(pkg, preferredManufacturers) * preferredManufacturerBonusCap
	factor += tierFit(pkg, organization) * tierFitBonusCap
	if pkg.TrinityCompliance {
		factor += trinityComplianceBonusCap
	}
	if factor > 1.0 {
		factor = 1.0
	}
	return factor
}

// preferredManufacturerShare is the fraction of the Trinity's members whose
// name mentions one of the preferred manufacturers.
func preferredManufacturerShare(pkg recommend.Package, preferred []string) float64 {
	if len(preferred) == 0 {
		return 0
	}
	members := []domain.Product{pkg.PowerSource, pkg.Feeder, pkg.Cooler}
	matches := 0
	for _, m := range members {
		lower := strings.ToLower(m.Name)
		for _, p := range preferred {
			if p != "" && strings.Contains(lower, strings.ToLower(p)) {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(len(members))
}

// tierFit scores the pricing-tier preference: large organizations prefer
// packages above $5000, everyone else prefers $1000-$5000, signalled via
// user_context.organization. An unknown organization or an unpriced
// package carries no signal.
func tierFit(pkg recommend.Package, organization string) float64 {
	if recommend.PricingTierFit(pkg.TotalPrice(), organization) > 0 {
		return 1.0
	}
	return 0
}

func sortByScoreDesc(packages []recommend.Package) {
	sort.SliceStable(packages, func(i, j int) bool {
		return packages[i].Score > packages[j].Score
	})
}
