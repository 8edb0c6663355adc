package recommend

import (
	"context"
	"sort"

	"github.com/weldtech/sparky/internal/config"
	"github.com/weldtech/sparky/pkg/domain"
	"github.com/weldtech/sparky/pkg/intent"
)

// Engine implements C6's public contract: recommend(intent) ->
// ScoredRecommendations (spec.md §4.6).
type Engine struct {
	collaborators          Collaborators
	modeConfig             *intent.ModeDetectionConfig
	preferredManufacturers []string
	goldenPackages         GoldenPackageBackfiller
	goldenBackfillTarget   int
}

func NewEngine(c Collaborators, modeConfig *intent.ModeDetectionConfig, recCfg config.RecommendConfig, golden GoldenPackageBackfiller) *Engine {
	return &Engine{
		collaborators:          c,
		modeConfig:             modeConfig,
		preferredManufacturers: recCfg.PreferredManufacturers,
		goldenPackages:         golden,
		goldenBackfillTarget:   recCfg.GoldenBackfillTarget,
	}
}

// Recommend runs strategy routing, candidate gathering, Trinity assembly,
// scoring, and the fallback chain (spec.md §4.6).
func (e *Engine) Recommend(ctx context.Context, req Request) ScoredRecommendations {
	strategy := SelectStrategy(req.Intent, req.RawQuery, e.modeConfig)

	if WantsTrinityFirst(req.RawQuery) {
		if recs, ok := e.trinityFirstPath(ctx, req, strategy); ok {
			return recs
		}
	}

	packages, source, err := e.gatherAndAssemble(ctx, req, strategy)
	if err == nil && len(packages) > 0 {
		result := e.finalize(packages, strategy, source, nil)
		e.enrichTopWithExpertFormation(ctx, &result, req)
		return result
	}

	// Fallback chain step 3: simplified sales-frequency-only variant.
	simplified, simErr := e.simplifiedFallback(ctx, req)
	if simErr == nil && len(simplified) > 0 {
		return e.finalize(simplified, strategy, "simplified_fallback", []string{"primary_path_empty"})
	}

	// Fallback chain step 4: empty response, needs follow-up.
	return ScoredRecommendations{
		Packages:      nil,
		NeedsFollowUp: true,
		Metadata:      SearchMetadata{Strategy: strategy, Algorithms: []string{"none"}},
		Errors:        []string{"no_candidates"},
	}
}

// gatherAndAssemble performs candidate gathering for PowerSources then
// Feeders/Coolers per chosen PowerSource, assembles Trinities, and scores
// them (spec.md §4.6.3, §4.6.4, §4.6.5).
func (e *Engine) gatherAndAssemble(ctx context.Context, req Request, strategy Strategy) ([]Package, string, error) {
	powerSources, source, err := GatherPowerSources(ctx, e.collaborators, strategy, req)
	if err != nil || len(powerSources) == 0 {
		return nil, source, err
	}

	var feeders, coolers []Candidate
	for _, ps := range topN(powerSources, maxPowerSources) {
		fCands, fErr := GatherComponent(ctx, e.collaborators, strategy, ps.Product.GIN, domain.CategoryFeeder)
		if fErr == nil {
			feeders = append(feeders, fCands...)
		}
		cCands, cErr := GatherComponent(ctx, e.collaborators, strategy, ps.Product.GIN, domain.CategoryCooler)
		if cErr == nil {
			coolers = append(coolers, cCands...)
		}
	}
	feeders = dedupeByGIN(feeders, candidatesPerCat)
	coolers = dedupeByGIN(coolers, candidatesPerCat)

	packages := AssembleTrinities(powerSources, feeders, coolers)
	if len(packages) == 0 {
		return nil, source, nil
	}

	scored := e.scoreAll(packages, req)
	return scored, source, nil
}

func (e *Engine) scoreAll(packages []Package, req Request) []Package {
	out := make([]Package, 0, len(packages))
	for _, pkg := range packages {
		out = append(out, ScorePackage(pkg, pkg.MeanComponentScore(), req.Intent, req.RawQuery, DefaultWeights, e.preferredManufacturers))
	}
	return out
}

// trinityFirstPath implements spec.md §4.6.2: embed the query, score
// stored Trinities by PowerSource vector similarity, materialize members
// plus up to five co-occurrence accessories.
func (e *Engine) trinityFirstPath(ctx context.Context, req Request, strategy Strategy) (ScoredRecommendations, bool) {
	if e.collaborators.Embedder == nil {
		return ScoredRecommendations{}, false
	}
	vec, err := e.collaborators.Embedder.EmbedQuery(ctx, req.RawQuery)
	if err != nil {
		return ScoredRecommendations{}, false
	}

	topPowerSources, err := e.collaborators.Store.VectorSearch(ctx, vectorIndexName, maxPowerSources, vec, domain.CategoryPowerSource, 0)
	if err != nil || len(topPowerSources) == 0 {
		if tok, ok := MentionsProductFamily(req.RawQuery); ok {
			results, searchErr := e.collaborators.Search.Search(ctx, domain.CategoryPowerSource, tok, maxPowerSources)
			if searchErr != nil || len(results) == 0 {
				return ScoredRecommendations{}, false
			}
			topPowerSources = results
		} else {
			return ScoredRecommendations{}, false
		}
	}

	var packages []Package
	for _, ps := range topPowerSources {
		feeders, _ := GatherComponent(ctx, e.collaborators, strategy, ps.Product.GIN, domain.CategoryFeeder)
		coolers, _ := GatherComponent(ctx, e.collaborators, strategy, ps.Product.GIN, domain.CategoryCooler)
		if len(feeders) == 0 || len(coolers) == 0 {
			continue
		}
		pkg := buildPackage(ps, feeders[0], coolers[0])
		pkg.Source = "trinity_first"
		pkg.Accessories = e.trinityAccessories(ctx, pkg)
		packages = append(packages, pkg)
	}
	if len(packages) == 0 {
		return ScoredRecommendations{}, false
	}

	scored := e.scoreAll(packages, req)
	result := e.finalize(scored, strategy, "trinity_first", nil)
	e.enrichTopWithExpertFormation(ctx, &result, req)
	return result, true
}

// trinityAccessories selects up to five accessories for a trinity by
// co-occurrence (spec.md §4.6.2 step 3).
func (e *Engine) trinityAccessories(ctx context.Context, pkg Package) []domain.Product {
	gins := []string{pkg.PowerSource.GIN, pkg.Feeder.GIN, pkg.Cooler.GIN}
	coOrdered, err := e.collaborators.Store.CoOrderedProducts(ctx, gins, 5)
	if err != nil {
		return nil
	}
	out := make([]domain.Product, 0, len(coOrdered))
	for _, c := range coOrdered {
		out = append(out, c.Product)
	}
	return out
}

// enrichTopWithExpertFormation runs the expert-mode package-formation
// extension (spec.md §4.6.4 step 3) against the top-ranked package's
// PowerSource for EXPERT and HYBRID modes, replacing its accessories with
// the consolidated, golden-package-backfilled set.
func (e *Engine) enrichTopWithExpertFormation(ctx context.Context, result *ScoredRecommendations, req Request) {
	if len(result.Packages) == 0 {
		return
	}
	if req.Intent.ExpertiseMode != intent.ModeExpert && req.Intent.ExpertiseMode != intent.ModeHybrid {
		return
	}
	top := result.Packages[0]
	members, err := ExpertPackageFormation(ctx, e.collaborators, e.goldenPackages, top.PowerSource, e.goldenBackfillTarget)
	if err != nil || len(members) == 0 {
		return
	}
	trinityGINs := map[string]bool{top.PowerSource.GIN: true, top.Feeder.GIN: true, top.Cooler.GIN: true}
	accessories := make([]domain.Product, 0, len(members))
	for _, m := range members {
		if !trinityGINs[m.GIN] {
			accessories = append(accessories, m)
		}
	}
	top.Accessories = accessories
	result.Packages[0] = top
}

// simplifiedFallback runs candidate gathering for PowerSources using only
// sales-frequency ordering and forms a single Trinity from the top-1 per
// category (spec.md §4.6.6 step 3).
func (e *Engine) simplifiedFallback(ctx context.Context, req Request) ([]Package, error) {
	ps, err := e.collaborators.Store.PagerankPopular(ctx, domain.CategoryPowerSource, 0)
	if err != nil || len(ps) == 0 {
		return nil, err
	}
	top := ps[0]

	feeders, _ := e.collaborators.Store.PagerankPopular(ctx, domain.CategoryFeeder, 0)
	coolers, _ := e.collaborators.Store.PagerankPopular(ctx, domain.CategoryCooler, 0)

	var feeder, cooler Candidate
	if len(feeders) > 0 {
		feeder = feeders[0]
	}
	if len(coolers) > 0 {
		cooler = coolers[0]
	}

	pkg := buildPackage(top, feeder, cooler)
	pkg.Source = "simplified"
	scored := e.scoreAll([]Package{pkg}, req)
	return scored, nil
}

// finalize ranks packages (spec.md §4.6.5: descending score, ties by
// combined sales frequency then lower total price) and computes quality
// metrics (spec.md §4.6.7).
func (e *Engine) finalize(packages []Package, strategy Strategy, source string, errs []string) ScoredRecommendations {
	sort.SliceStable(packages, func(i, j int) bool {
		if packages[i].Score != packages[j].Score {
			return packages[i].Score > packages[j].Score
		}
		if packages[i].TrinitySalesFrequency() != packages[j].TrinitySalesFrequency() {
			return packages[i].TrinitySalesFrequency() > packages[j].TrinitySalesFrequency()
		}
		return packages[i].TotalPrice() < packages[j].TotalPrice()
	})

	compliantCount := 0
	buckets := map[ConfidenceBand]int{ConfidenceHigh: 0, ConfidenceMedium: 0, ConfidenceLow: 0}
	for _, p := range packages {
		if p.TrinityCompliance {
			compliantCount++
		}
		buckets[BandFor(p.Score)]++
	}

	rate := 0.0
	if len(packages) > 0 {
		rate = float64(compliantCount) / float64(len(packages))
	}

	return ScoredRecommendations{
		Packages:             packages,
		NeedsFollowUp:        false,
		TrinityFormationRate: rate,
		ConfidenceBuckets:    buckets,
		Metadata: SearchMetadata{
			Strategy:   strategy,
			Algorithms: []string{source},
			Weights: map[string]float64{
				"trinity_compliance": DefaultWeights.TrinityCompliance,
				"compatibility":      DefaultWeights.Compatibility,
				"sales_popularity":   DefaultWeights.SalesPopularity,
				"price_consistency":  DefaultWeights.PriceConsistency,
			},
		},
		Errors: errs,
	}
}
