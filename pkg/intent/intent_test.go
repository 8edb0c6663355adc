package intent_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/weldtech/sparky/pkg/intent"
	"github.com/weldtech/sparky/pkg/vocabulary"
)

const vocabYAML = `
product_names:
  weight: 3.0
  terms:
    - aristo 500 ix
    - warrior 400i
    - renegade 300
processes:
  weight: 2.5
  terms:
    - mig
    - gmaw
technical_terms:
  weight: 2.0
  terms:
    - duty cycle
materials:
  weight: 1.8
  terms:
    - aluminum
applications:
  weight: 1.5
  terms:
    - automotive
general_terms:
  weight: 1.2
  terms:
    - welding
process_aliases:
  gmaw: MIG
  mig welding: MIG
materials_enum:
  - aluminum
  - stainless steel
industries_enum:
  - automotive
`

const modeYAML = `
expert_weight: 0.4
guided_weight: 0.3
confidence_threshold: 0.6
expert_signals:
  - aristo 500 ix
  - gmaw
guided_signals:
  - i'm new to welding
  - help me choose
beginner_phrases:
  - i'm new to welding
guided_flow_patterns:
  - form a package with
`

func loadTestVocab(t *testing.T) *vocabulary.Vocabulary {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "welding_processes.yaml")
	if err := os.WriteFile(path, []byte(vocabYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := vocabulary.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func loadTestModeConfig(t *testing.T) *intent.ModeDetectionConfig {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mode_detection.yaml")
	if err := os.WriteFile(path, []byte(modeYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := intent.LoadModeDetectionConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestDetectLanguageDefaultsToEnglish(t *testing.T) {
	lang, conf := intent.DetectLanguage("I need a welder for aluminum")
	if lang != "en" {
		t.Errorf("expected en, got %s", lang)
	}
	if conf <= 0 {
		t.Errorf("expected positive confidence")
	}
}

func TestDetectLanguageSpanish(t *testing.T) {
	lang, _ := intent.DetectLanguage("Necesito una soldadora para acero inoxidable en mi taller")
	if lang != "es" {
		t.Errorf("expected es, got %s", lang)
	}
}

func TestTranslateAndTranslateBack(t *testing.T) {
	translated := intent.Translate("Necesito soldadora para aluminio", "es")
	if translated == "Necesito soldadora para aluminio" {
		t.Errorf("expected translation to change text")
	}
	back := intent.TranslateBack("need welder for aluminum", "es")
	if back == "need welder for aluminum" {
		t.Errorf("expected reverse translation to change text")
	}
}

func TestProcessProductSpecificExpertQuery(t *testing.T) {
	vocab := loadTestVocab(t)
	modeCfg := loadTestModeConfig(t)
	p := intent.NewProcessor(vocab, modeCfg, nil, nil)

	result := p.Process(context.Background(), "Create package with Aristo 500 ix for aluminum MIG welding",
		intent.UserContext{PreferredLanguage: "en", ExpertiseHistory: []string{"GMAW", "duty cycle"}})

	if result.DetectedLanguage != "en" {
		t.Errorf("expected en, got %s", result.DetectedLanguage)
	}
	if result.ExpertiseMode != intent.ModeExpert {
		t.Errorf("expected EXPERT mode, got %s", result.ExpertiseMode)
	}
	if result.MentionedProduct == "" {
		t.Errorf("expected mentioned product to be set")
	}
}

func TestProcessBeginnerQueryIsGuided(t *testing.T) {
	vocab := loadTestVocab(t)
	modeCfg := loadTestModeConfig(t)
	p := intent.NewProcessor(vocab, modeCfg, nil, nil)

	result := p.Process(context.Background(), "I'm new to welding and need help choosing a welding machine for my garage projects",
		intent.UserContext{PreferredLanguage: "en"})

	if result.ExpertiseMode != intent.ModeGuided {
		t.Errorf("expected GUIDED mode, got %s", result.ExpertiseMode)
	}
}

func TestProcessLowConfidenceNeedsClarification(t *testing.T) {
	vocab := loadTestVocab(t)
	modeCfg := loadTestModeConfig(t)
	p := intent.NewProcessor(vocab, modeCfg, nil, nil)

	result := p.Process(context.Background(), "asdf qwerty", intent.UserContext{PreferredLanguage: "en"})

	if !result.NeedsClarification {
		t.Errorf("expected needs_clarification=true for a nonsense query")
	}
	if len(result.ClarificationQuestions) == 0 {
		t.Errorf("expected at least one clarification question")
	}
	if result.Confidence >= 0.6 {
		t.Errorf("expected low confidence, got %v", result.Confidence)
	}
}

func TestExtractWithRegexCapsConfidence(t *testing.T) {
	vocab := loadTestVocab(t)
	ext := intent.ExtractWithRegex("need a 400 amp MIG welder for aluminum", vocab)
	if ext.Confidence != 0.3 {
		t.Errorf("expected regex fallback confidence 0.3, got %v", ext.Confidence)
	}
	if ext.CurrentAmps == nil || *ext.CurrentAmps != 400 {
		t.Errorf("expected current_amps=400, got %v", ext.CurrentAmps)
	}
}

func TestNormalizeProcessesDropsUnknown(t *testing.T) {
	vocab := loadTestVocab(t)
	out := intent.NormalizeProcesses([]string{"gmaw", "not-a-process"}, vocab, nil)
	if len(out) != 1 || out[0] != "MIG" {
		t.Errorf("expected [MIG], got %v", out)
	}
}
