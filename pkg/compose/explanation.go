package compose

import (
	"fmt"
	"strings"

	"github.com/weldtech/sparky/pkg/intent"
	"github.com/weldtech/sparky/pkg/recommend"
)

// buildTitle renders a short, mode-independent headline for the top
// package, or a no-results headline when packages is empty.
func buildTitle(packages []recommend.Package) string {
	if len(packages) == 0 {
		return "No matching equipment found"
	}
	top := packages[0]
	return fmt.Sprintf("Recommended: %s Trinity package", top.PowerSource.Name)
}

// buildSummary and buildDetailedExplanation are mode-dependent: EXPERT gets
// a technical summary with scores and compliance, GUIDED gets
// beginner-friendly prose, HYBRID gets a balanced overview.
func buildSummary(mode intent.Mode, packages []recommend.Package) string {
	if len(packages) == 0 {
		return "No packages matched your request. Try naming a process, material, or product."
	}
	top := packages[0]
	switch mode {
	case intent.ModeExpert:
		return fmt.Sprintf("Top match: %s / %s / %s, score %.2f, trinity_compliance=%v.",
			top.PowerSource.Name, top.Feeder.Name, top.Cooler.Name, top.Score, top.TrinityCompliance)
	case intent.ModeGuided:
		return fmt.Sprintf("We recommend the %s power source paired with the %s wire feeder and %s cooling unit — a complete, ready-to-weld setup.",
			top.PowerSource.Name, top.Feeder.Name, top.Cooler.Name)
	default:
		return fmt.Sprintf("The %s package is our top pick (score %.2f); %d alternative package(s) are also available.",
			top.PowerSource.Name, top.Score, len(packages)-1)
	}
}

func buildDetailedExplanation(mode intent.Mode, packages []recommend.Package) string {
	if len(packages) == 0 {
		return "The catalog search returned no candidates for this query. Consider rephrasing with a specific process, material, or product name."
	}
	top := packages[0]
	switch mode {
	case intent.ModeExpert:
		var b strings.Builder
		fmt.Fprintf(&b, "PowerSource %s (sales_frequency=%d), Feeder %s, Cooler %s. ",
			top.PowerSource.Name, top.PowerSource.SalesFrequency, top.Feeder.Name, top.Cooler.Name)
		fmt.Fprintf(&b, "Compliance score %.2f, price consistency %.2f, total price %.2f.",
			top.ComplianceScore, top.PriceConsistency, top.TotalPrice())
		return b.String()
	case intent.ModeGuided:
		var b strings.Builder
		b.WriteString("Here's what each piece does: the power source supplies the welding current, ")
		b.WriteString("the wire feeder delivers filler wire at a controlled rate, and the cooler keeps the torch ")
		b.WriteString("from overheating during longer welds. Together these three form a complete, compatible setup.")
		return b.String()
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "%s pairs well with %s and %s for this job. ", top.PowerSource.Name, top.Feeder.Name, top.Cooler.Name)
		if len(packages) > 1 {
			b.WriteString("Alternative configurations are ranked below if this doesn't fit your budget or shop.")
		}
		return b.String()
	}
}

// buildTechnicalNotes is populated only for EXPERT explanations; other
// modes omit performance-note detail the spec reserves for experts.
func buildTechnicalNotes(mode intent.Mode, packages []recommend.Package) []string {
	if mode != intent.ModeExpert || len(packages) == 0 {
		return nil
	}
	notes := make([]string, 0, len(packages))
	for _, pkg := range packages {
		notes = append(notes, fmt.Sprintf("%s: score=%.2f compliance=%.2f price_consistency=%.2f",
			pkg.PowerSource.Name, pkg.Score, pkg.ComplianceScore, pkg.PriceConsistency))
	}
	return notes
}

// buildPackageDescriptions renders every package into its user-facing
// description, independent of mode.
func buildPackageDescriptions(packages []recommend.Package) []PackageDescription {
	out := make([]PackageDescription, 0, len(packages))
	for _, pkg := range packages {
		highlights := []string{}
		if pkg.TrinityCompliance {
			highlights = append(highlights, "complete trinity")
		}
		if pkg.PriceConsistency >= 0.9 {
			highlights = append(highlights, "consistent pricing")
		}
		out = append(out, PackageDescription{
			PowerSourceName:  pkg.PowerSource.Name,
			FeederName:       pkg.Feeder.Name,
			CoolerName:       pkg.Cooler.Name,
			Score:            pkg.Score,
			TrinityCompliant: pkg.TrinityCompliance,
			TotalPrice:       pkg.TotalPrice(),
			Highlights:       highlights,
		})
	}
	return out
}

// buildNextSteps is mode-dependent: GUIDED queries always include
// safety-equipment guidance (spec.md scenario S2).
func buildNextSteps(mode intent.Mode, in intent.ProcessedIntent) []string {
	steps := []string{"Review the recommended package details"}
	switch mode {
	case intent.ModeGuided:
		steps = append(steps,
			"Make sure you have basic safety equipment: welding helmet, gloves, and protective clothing",
			"Consider a beginner-friendly tutorial for your chosen process before your first weld",
		)
	case intent.ModeExpert:
		steps = append(steps, "Confirm duty-cycle and amperage specs match your production requirements")
	default:
		steps = append(steps, "Compare the listed alternatives if budget or availability is a concern")
	}
	if in.NeedsClarification {
		steps = append(steps, "Provide more detail on material, process, or thickness for a sharper match")
	}
	return steps
}

// buildRelatedQuestions surfaces follow-up prompts drawn from intent gaps.
func buildRelatedQuestions(in intent.ProcessedIntent) []string {
	if len(in.ClarificationQuestions) > 0 {
		return in.ClarificationQuestions
	}
	return []string{
		"What material will you primarily be welding?",
		"Do you need a portable setup or a fixed shop installation?",
	}
}
