// Package recommend implements C6, the core of the core: strategy
// routing, candidate gathering, Trinity assembly, scoring, and the
// fallback chain (spec.md §4.6).
package recommend

import (
	"github.com/weldtech/sparky/pkg/domain"
	"github.com/weldtech/sparky/pkg/intent"
)

// Strategy names the closed set of routing strategies (spec.md §4.6.1).
type Strategy string

const (
	StrategyGraphFocused Strategy = "GRAPH_FOCUSED"
	StrategyHybrid       Strategy = "HYBRID"
	StrategyGuidedFlow   Strategy = "GUIDED_FLOW"
)

// Package is a single scored recommendation: a Trinity plus accessories.
type Package struct {
	PowerSource domain.Product
	Feeder      domain.Product
	Cooler      domain.Product

	// PowerSourceScore, FeederScore, and CoolerScore carry each member's
	// originating candidate score (graph traversal, vector similarity, or
	// sales ranking), feeding the mean-compatibility scoring term.
	PowerSourceScore float64
	FeederScore      float64
	CoolerScore      float64

	Accessories       []domain.Product
	Score             float64
	TrinityCompliance bool
	ComplianceScore   float64
	PriceConsistency  float64
	Source            string
}

// MeanComponentScore averages the trinity members' candidate scores,
// clamping each to [0,1]; an absent member contributes 0, so incomplete
// trinities lose compatibility weight as well as compliance weight.
func (p Package) MeanComponentScore() float64 {
	clamp := func(s float64) float64 {
		if s > 1 {
			return 1
		}
		if s < 0 {
			return 0
		}
		return s
	}
	return (clamp(p.PowerSourceScore) + clamp(p.FeederScore) + clamp(p.CoolerScore)) / 3.0
}

// Products returns every member of the package, Trinity first.
func (p Package) Products() []domain.Product {
	out := make([]domain.Product, 0, 3+len(p.Accessories))
	out = append(out, p.PowerSource, p.Feeder, p.Cooler)
	out = append(out, p.Accessories...)
	return out
}

// TotalPrice sums every member's price, treating a nil price as 0.
func (p Package) TotalPrice() float64 {
	total := 0.0
	for _, prod := range p.Products() {
		if prod.Price != nil {
			total += *prod.Price
		}
	}
	return total
}

// TrinitySalesFrequency sums sales_frequency across the Trinity (used for
// tie-breaking, spec.md §4.6.5).
func (p Package) TrinitySalesFrequency() int {
	return p.PowerSource.SalesFrequency + p.Feeder.SalesFrequency + p.Cooler.SalesFrequency
}

// ConfidenceBand buckets a package score into the distribution spec.md
// §4.6.7 requires.
type ConfidenceBand string

const (
	ConfidenceHigh   ConfidenceBand = "high"
	ConfidenceMedium ConfidenceBand = "medium"
	ConfidenceLow    ConfidenceBand = "low"
)

func BandFor(score float64) ConfidenceBand {
	switch {
	case score >= 0.8:
		return ConfidenceHigh
	case score >= 0.6:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// SearchMetadata records which strategy and algorithms produced a result
// set, for the response's observability fields (spec.md §4.6.7).
type SearchMetadata struct {
	Strategy   Strategy
	Algorithms []string
	Weights    map[string]float64
}

// ScoredRecommendations is C6's public output (spec.md §4.6).
type ScoredRecommendations struct {
	Packages             []Package
	NeedsFollowUp        bool
	TrinityFormationRate float64
	ConfidenceBuckets    map[ConfidenceBand]int
	Metadata             SearchMetadata
	Errors               []string
}

// UserHints is the subset of UserContext the engine's business rules and
// strategy routing consult (spec.md §4.6.4, §4.6.1).
type UserHints struct {
	Organization string
}

// Candidate is an internal working type pairing a scored product with the
// originating collaborator, used while gathering PowerSource/Feeder/Cooler
// candidates before Trinity assembly.
type Candidate = domain.ScoredProduct

// Request bundles the processed intent with the raw query and user hints
// the engine's strategy/business-rule logic needs beyond the intent
// struct itself.
type Request struct {
	Intent    intent.ProcessedIntent
	RawQuery  string
	UserHints UserHints
}
