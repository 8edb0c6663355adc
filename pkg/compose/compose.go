package compose

import (
	"github.com/weldtech/sparky/pkg/intent"
	"github.com/weldtech/sparky/pkg/recommend"
)

// Composer implements C7's public contract: compose(recommendations,
// intent) -> Response (spec.md §4.7).
type Composer struct {
	preferredManufacturers []string
}

func NewComposer(preferredManufacturers []string) *Composer {
	return &Composer{preferredManufacturers: preferredManufacturers}
}

// Compose runs business re-ranking, mode-dependent explanation generation,
// response assembly, translation back to the detected language, and
// satisfaction-prediction telemetry (spec.md §4.7 steps 1-5).
func (c *Composer) Compose(rec recommend.ScoredRecommendations, in intent.ProcessedIntent) Response {
	packages := reRank(rec.Packages, c.preferredManufacturers, in.Organization)
	level := explanationLevelFor(in.ExpertiseMode)

	resp := Response{
		Title:               buildTitle(packages),
		Summary:             buildSummary(in.ExpertiseMode, packages),
		DetailedExplanation: buildDetailedExplanation(in.ExpertiseMode, packages),
		TechnicalNotes:      buildTechnicalNotes(in.ExpertiseMode, packages),
		PackageDescriptions: buildPackageDescriptions(packages),
		NextSteps:           buildNextSteps(in.ExpertiseMode, in),
		RelatedQuestions:    buildRelatedQuestions(in),
		ExplanationLevel:    level,
		ResponseLanguage:    in.DetectedLanguage,
		Packages:            packages,
		OverallConfidence:   overallConfidence(packages, in),
		NeedsFollowUp:       rec.NeedsFollowUp || len(packages) == 0,
		FollowUpQuestions:   followUpQuestions(in, packages),
	}
	resp.SatisfactionPrediction = predictSatisfaction(packages, rec.TrinityFormationRate, in.ExpertiseMode)

	if in.DetectedLanguage != "" && in.DetectedLanguage != "en" {
		resp.Title = intent.TranslateBack(resp.Title, in.DetectedLanguage)
		resp.Summary = intent.TranslateBack(resp.Summary, in.DetectedLanguage)
		resp.DetailedExplanation = intent.TranslateBack(resp.DetailedExplanation, in.DetectedLanguage)
		for i, n := range resp.NextSteps {
			resp.NextSteps[i] = intent.TranslateBack(n, in.DetectedLanguage)
		}
		for i, q := range resp.RelatedQuestions {
			resp.RelatedQuestions[i] = intent.TranslateBack(q, in.DetectedLanguage)
		}
		for i, q := range resp.FollowUpQuestions {
			resp.FollowUpQuestions[i] = intent.TranslateBack(q, in.DetectedLanguage)
		}
	}

	return resp
}

// overallConfidence is the mean of the returned packages' scores, or 0.0
// when no package survived (spec.md §4.8:
// user-visible responses always carry overall_confidence).
func overallConfidence(packages []recommend.Package, in intent.ProcessedIntent) float64 {
	if len(packages) == 0 {
		return 0.0
	}
	var sum float64
	for _, p := range packages {
		sum += p.Score
	}
	return sum / float64(len(packages))
}

// followUpQuestions surfaces the intent's clarification questions when the
// response has no packages, so an empty response always carries at least
// one follow-up question (spec.md §7).
func followUpQuestions(in intent.ProcessedIntent, packages []recommend.Package) []string {
	if len(packages) > 0 {
		return nil
	}
	if len(in.ClarificationQuestions) > 0 {
		return in.ClarificationQuestions
	}
	return []string{"Could you tell me more about what you're trying to weld?"}
}

// predictSatisfaction combines mean package score (0.6), trinity
// formation rate (0.3), and a mode-appropriate bonus (0.1) into a single
// telemetry-only figure (spec.md §4.7 step 5).
func predictSatisfaction(packages []recommend.Package, trinityFormationRate float64, mode intent.Mode) float64 {
	if len(packages) == 0 {
		return 0.0
	}
	var sum float64
	for _, p := range packages {
		sum += p.Score
	}
	meanScore := sum / float64(len(packages))

	bonus := 0.0
	switch mode {
	case intent.ModeExpert:
		if packages[0].TrinityCompliance && len(packages) > 1 {
			bonus = 1.0 // experts expect alternatives to compare against
		}
	case intent.ModeGuided:
		if packages[0].TrinityCompliance {
			bonus = 1.0 // beginners expect one complete, ready-to-weld setup
		}
	default:
		if len(packages) >= 2 {
			bonus = 1.0 // hybrid users expect a top pick plus alternatives
		}
	}

	score := 0.6*meanScore + 0.3*trinityFormationRate + 0.1*bonus
	if score > 1.0 {
		score = 1.0
	}
	return score
}
