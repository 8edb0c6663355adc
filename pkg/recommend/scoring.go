package recommend

import (
	"sort"
	"strings"

	"github.com/weldtech/sparky/internal/stats"
	"github.com/weldtech/sparky/pkg/domain"
	"github.com/weldtech/sparky/pkg/intent"
)

// ScoringWeights are the named term weights of spec.md §4.6.5.
type ScoringWeights struct {
	TrinityCompliance float64
	Compatibility     float64
	SalesPopularity   float64
	PriceConsistency  float64
}

// DefaultWeights matches spec.md §4.6.5's table.
var DefaultWeights = ScoringWeights{
	TrinityCompliance: 0.4,
	Compatibility:     0.3,
	SalesPopularity:   0.2,
	PriceConsistency:  0.1,
}

// productNameBonus is the intent-match bonus keyword table (spec.md
// §4.6.5): query tokens that, when also present in a trinity member's
// name, add the given weight.
var productNameBonus = map[string]float64{
	"aristo 500ix":    0.45,
	"aristo 500 ix":   0.45,
	"warrior 400i":    0.40,
	"renegade 300":    0.35,
	"rebel emp 215ic": 0.35,
}

const maxSalesFrequencyNormalization = 100.0

// Pricing tier bounds (spec.md §4.6.4 step 2): large organizations prefer
// packages above LargeOrgPreferredMinPrice; everyone else prefers
// StandardPreferredMinPrice..LargeOrgPreferredMinPrice.
const (
	LargeOrgPreferredMinPrice = 5000.0
	StandardPreferredMinPrice = 1000.0
)

// largeOrganizationMarkers are the user_context.organization substrings
// treated as large-organization signals.
var largeOrganizationMarkers = []string{"enterprise", "corp", "industrial", "manufacturing", "global"}

// IsLargeOrganization applies the organization heuristics of spec.md
// §4.6.4 step 2 to the caller-declared organization string.
func IsLargeOrganization(organization string) bool {
	lower := strings.ToLower(organization)
	for _, marker := range largeOrganizationMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// PricingTierFit scores a package total against the organization's
// preferred price band: +1 inside the band, -1 outside it, 0 when the
// organization or the prices are unknown (no signal, no adjustment).
func PricingTierFit(total float64, organization string) float64 {
	if organization == "" || total == 0 {
		return 0
	}
	if IsLargeOrganization(organization) {
		if total > LargeOrgPreferredMinPrice {
			return 1
		}
		return -1
	}
	if total >= StandardPreferredMinPrice && total <= LargeOrgPreferredMinPrice {
		return 1
	}
	return -1
}

// ScorePackage computes spec.md §4.6.5's weighted sum, clamped to [0,1],
// plus the capped intent-match bonus and ±0.1 business adjustment, then
// applies the expert-mode ×1.1 multiplier.
func ScorePackage(pkg Package, meanCompatibility float64, in intent.ProcessedIntent, rawQuery string, weights ScoringWeights, preferredManufacturers []string) Package {
	salesScore := normalizeSales(pkg.TrinitySalesFrequency())
	priceConsistency := PriceConsistencyScore(pkg.Products())

	base := weights.TrinityCompliance*pkg.ComplianceScore +
		weights.Compatibility*meanCompatibility +
		weights.SalesPopularity*salesScore +
		weights.PriceConsistency*priceConsistency

	bonus := intentMatchBonus(pkg, rawQuery)
	adjustment := businessAdjustment(pkg, preferredManufacturers, in.Organization)

	score := base + bonus + adjustment
	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}

	if in.ExpertiseMode == intent.ModeExpert {
		score *= 1.1
		if score > 1.0 {
			score = 1.0
		}
	}

	pkg.Score = score
	pkg.PriceConsistency = priceConsistency
	return pkg
}

// PriceConsistencyScore is 1 - (max|price-mean|/mean) across components
// that expose a price; missing prices are excluded, and the score is 1.0
// if fewer than two prices are known (spec.md §9 Open Questions).
func PriceConsistencyScore(products []domain.Product) float64 {
	var prices []float64
	for _, p := range products {
		if p.Price != nil {
			prices = append(prices, *p.Price)
		}
	}
	if len(prices) < 2 {
		return 1.0
	}
	mean, maxDev := stats.MaxAbsDeviation(prices)
	if mean == 0 {
		return 1.0
	}
	score := 1.0 - maxDev/mean
	if score < 0 {
		score = 0
	}
	return score
}

func normalizeSales(freq int) float64 {
	score := float64(freq) / maxSalesFrequencyNormalization
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// intentMatchBonus adds the query's product-name keyword weight when a
// trinity member's name contains that token, at most one hit per
// component, summed and capped at 0.15 (spec.md §4.6.5). The full token
// must appear in both the query and the member's name; comparison runs
// on whitespace-squashed forms so "Aristo 500 ix" and "Aristo 500ix"
// count as the same token.
func intentMatchBonus(pkg Package, rawQuery string) float64 {
	squashedQuery := squash(rawQuery)
	tokens := make([]string, 0, len(productNameBonus))
	for token := range productNameBonus {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	var total float64
	for _, member := range []domain.Product{pkg.PowerSource, pkg.Feeder, pkg.Cooler} {
		squashedName := squash(member.Name)
		for _, token := range tokens {
			squashedToken := squash(token)
			if strings.Contains(squashedQuery, squashedToken) && strings.Contains(squashedName, squashedToken) {
				total += productNameBonus[token]
				break
			}
		}
	}
	if total > 0.15 {
		total = 0.15
	}
	return total
}

// squash lowercases and strips spaces for spacing-insensitive token
// containment.
func squash(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "")
}

// businessAdjustment applies the ±0.1 business-rule term: preferred
// manufacturers get a positive tilt, and the package total is scored
// against the organization's preferred price band (spec.md §4.6.4 step 2).
func businessAdjustment(pkg Package, preferredManufacturers []string, organization string) float64 {
	adjustment := 0.0
	for _, member := range pkg.Products() {
		for _, mfr := range preferredManufacturers {
			if strings.Contains(strings.ToUpper(member.Name), strings.ToUpper(mfr)) {
				adjustment += 0.1 / 3.0
			}
		}
	}
	adjustment += 0.05 * PricingTierFit(pkg.TotalPrice(), organization)
	if adjustment > 0.1 {
		adjustment = 0.1
	}
	if adjustment < -0.1 {
		adjustment = -0.1
	}
	return adjustment
}
