// Package compose implements C7: business re-ranking, mode-dependent
// explanation generation, response formatting, translation back to the
// detected language, and satisfaction-prediction telemetry over a
// recommendation engine's output.
package compose

import (
	"github.com/weldtech/sparky/pkg/intent"
	"github.com/weldtech/sparky/pkg/recommend"
)

// ExplanationLevel names the closed set of explanation registers a
// response is written in, keyed off the detected expertise mode.
type ExplanationLevel string

const (
	ExplanationTechnical   ExplanationLevel = "TECHNICAL"
	ExplanationEducational ExplanationLevel = "EDUCATIONAL"
	ExplanationBalanced    ExplanationLevel = "BALANCED"
)

func explanationLevelFor(mode intent.Mode) ExplanationLevel {
	switch mode {
	case intent.ModeExpert:
		return ExplanationTechnical
	case intent.ModeGuided:
		return ExplanationEducational
	default:
		return ExplanationBalanced
	}
}

// PackageDescription is the user-facing rendering of a single scored
// package.
type PackageDescription struct {
	PowerSourceName  string
	FeederName       string
	CoolerName       string
	Score            float64
	TrinityCompliant bool
	TotalPrice       float64
	Highlights       []string
}

// Response is C7's public output: everything the HTTP layer hands back to
// the caller.
type Response struct {
	Title                  string
	Summary                string
	DetailedExplanation    string
	TechnicalNotes         []string
	PackageDescriptions    []PackageDescription
	NextSteps              []string
	RelatedQuestions       []string
	ExplanationLevel       ExplanationLevel
	ResponseLanguage       string
	Packages               []recommend.Package
	OverallConfidence      float64
	NeedsFollowUp          bool
	FollowUpQuestions      []string
	SatisfactionPrediction float64
}

// originalScoreWeight and businessScoreWeight are the 0.7/0.3 split between
// a package's original score and its business-context factor.
const (
	originalScoreWeight = 0.7
	businessScoreWeight = 0.3
)

// preferredManufacturerBonusCap, tierFitBonusCap, and trinityComplianceBonusCap are
// the per-component ceilings on the business-context factor.
const (
	preferredManufacturerBonusCap = 0.3
	tierFitBonusCap               = 0.2
	trinityComplianceBonusCap     = 0.2
)

