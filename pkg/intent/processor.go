package intent

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/weldtech/sparky/pkg/llm"
	"github.com/weldtech/sparky/pkg/vocabulary"
)

// Processor implements C5's public contract: process(query, user_context)
// -> ProcessedIntent (spec.md §4.5).
type Processor struct {
	vocab   *vocabulary.Vocabulary
	modeCfg *ModeDetectionConfig
	llm     llm.Client
	log     *logrus.Logger
}

func NewProcessor(vocab *vocabulary.Vocabulary, modeCfg *ModeDetectionConfig, client llm.Client, log *logrus.Logger) *Processor {
	return &Processor{vocab: vocab, modeCfg: modeCfg, llm: client, log: log}
}

// Process runs the full C5 pipeline (spec.md §4.5 steps 1-8).
func (p *Processor) Process(ctx context.Context, query string, uc UserContext) ProcessedIntent {
	result := ProcessedIntent{Query: query, Organization: uc.Organization}

	lang, langConfidence := DetectLanguage(query)
	if uc.PreferredLanguage != "" {
		lang = uc.PreferredLanguage
	}
	result.DetectedLanguage = lang
	result.LanguageConfidence = langConfidence

	translated := query
	if lang != defaultLanguage {
		translated = Translate(query, lang)
	}
	result.TranslatedQuery = translated

	// The historical sub-score reads the user's recorded expertise terms
	// followed by the session's previous queries.
	history := append(append([]string{}, uc.ExpertiseHistory...), uc.PreviousQueries...)
	mode, expertiseScore := DetectMode(translated, history, p.vocab, p.modeCfg)
	result.ExpertiseMode = mode
	result.ExpertiseScore = expertiseScore

	match := matchKnownProduct(translated)
	var ext extraction
	intentConfidence := 0.0

	switch {
	case match.matched:
		result.MentionedProduct = match.product
		result.Application = match.application
		intentConfidence = match.confidence
	case p.llm != nil:
		if parsed, ok := ExtractWithLLM(ctx, p.llm, p.vocab, translated, p.log); ok {
			ext = parsed
			intentConfidence = parsed.Confidence
		} else {
			ext = ExtractWithRegex(translated, p.vocab)
			intentConfidence = ext.Confidence
			result.Errors = append(result.Errors, "llm_extraction_failed")
		}
	default:
		ext = ExtractWithRegex(translated, p.vocab)
		intentConfidence = ext.Confidence
	}

	if !match.matched {
		result.Processes = NormalizeProcesses(ext.Processes, p.vocab, p.log)
		result.Material = NormalizeMaterial(ext.Material)
		result.PowerWatts = ext.PowerWatts
		result.CurrentAmps = ext.CurrentAmps
		result.Voltage = ext.Voltage
		result.ThicknessMM = ext.ThicknessMM
		result.Environment = ext.Environment
		result.Application = ext.Application
		result.Industry = ext.Industry
		result.MissingParams = ext.MissingParams
		result.Completeness = ext.Completeness
	}

	modeAdjustment := 1.0
	switch mode {
	case ModeExpert:
		modeAdjustment = 1.1
	case ModeGuided:
		modeAdjustment = 0.9
	}

	combined := 0.7*intentConfidence + 0.2*langConfidence
	combined *= 1.0 + 0.1*(modeAdjustment-1.0)
	if combined > 1.0 {
		combined = 1.0
	}
	result.Confidence = combined

	if combined < 0.6 {
		result.NeedsClarification = true
		result.ClarificationQuestions = clarificationQuestions(result)
	}

	return result
}

// NormalizeMaterial canonicalizes a material string to its snake_case
// form ("stainless steel" -> "stainless_steel") so downstream consumers
// match on one spelling.
func NormalizeMaterial(m string) string {
	m = strings.TrimSpace(strings.ToLower(m))
	return strings.ReplaceAll(m, " ", "_")
}

// clarificationQuestions seeds up to 3 questions from which required slots
// are empty (spec.md §4.5 step 8).
func clarificationQuestions(r ProcessedIntent) []string {
	var questions []string
	if len(r.Processes) == 0 {
		questions = append(questions, "Which welding process are you planning to use (MIG, TIG, Stick)?")
	}
	if r.Material == "" {
		questions = append(questions, "What material will you be welding (steel, aluminum, stainless)?")
	}
	if r.Application == "" {
		questions = append(questions, "What is this equipment for (a shop, a specific project, repair work)?")
	}
	if len(questions) > 3 {
		questions = questions[:3]
	}
	if len(questions) == 0 {
		questions = append(questions, "Could you tell me more about what you're trying to weld?")
	}
	return questions
}
