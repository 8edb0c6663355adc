package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/weldtech/sparky/internal/logging"
	"github.com/weldtech/sparky/pkg/llm"
	"github.com/weldtech/sparky/pkg/vocabulary"

	"github.com/sirupsen/logrus"
)

// buildSystemPrompt lists the valid welding processes, materials, and
// industries plus the JSON schema the LLM must return (spec.md §4.5 step
// 5).
func buildSystemPrompt(vocab *vocabulary.Vocabulary) string {
	var sb strings.Builder
	sb.WriteString("You extract structured welding equipment requirements from user queries.\n")
	sb.WriteString("Valid processes: " + strings.Join(vocab.PrimaryProcesses(), ", ") + "\n")
	sb.WriteString("Valid materials: " + strings.Join(vocab.Materials(), ", ") + "\n")
	sb.WriteString("Valid industries: " + strings.Join(vocab.Industries(), ", ") + "\n")
	sb.WriteString(`Respond with only JSON matching this schema: {"processes":[],"material":"","power_watts":null,"current_amps":null,"voltage":null,"thickness_mm":null,"environment":"","application":"","industry":"","confidence":0.0,"completeness":0.0,"missing_params":[]}`)
	return sb.String()
}

// ExtractWithLLM prompts the LLM for structured extraction and parses the
// result tolerantly, retrying once before giving up (spec.md §4.5 step 5).
func ExtractWithLLM(ctx context.Context, client llm.Client, vocab *vocabulary.Vocabulary, query string, log *logrus.Logger) (extraction, bool) {
	systemPrompt := buildSystemPrompt(vocab)

	var parsed extraction
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		raw, err := client.Complete(ctx, systemPrompt, query)
		if err != nil {
			lastErr = err
			continue
		}
		repaired, ok := llm.ParseResult(raw)
		if !ok {
			lastErr = fmt.Errorf("unparseable LLM response")
			continue
		}
		if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
			lastErr = err
			continue
		}
		return parsed, true
	}

	if log != nil {
		logging.WithComponent(log, "intent").WithError(lastErr).Warn("llm structured extraction failed, falling back to regex")
	}
	return extraction{}, false
}

var (
	ampsRe  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*amp`)
	voltsRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*volt`)
	wattsRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*watt`)
	mmRe    = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*mm`)
)

// ExtractWithRegex fills only the fields it can match from the raw query,
// with confidence capped at 0.3 (spec.md §4.5 Errors: "LLM timeout or
// parse failure -> run a regex-pattern fallback").
func ExtractWithRegex(query string, vocab *vocabulary.Vocabulary) extraction {
	result := extraction{Confidence: 0.3}

	if vocab != nil {
		for _, term := range vocab.TechnicalProcesses() {
			if strings.Contains(strings.ToLower(query), strings.ToLower(term)) {
				if canon, ok := vocab.NormalizeProcess(term); ok {
					result.Processes = appendUnique(result.Processes, canon)
				}
			}
		}
		for _, m := range vocab.Materials() {
			if strings.Contains(strings.ToLower(query), m) {
				result.Material = m
				break
			}
		}
		for _, ind := range vocab.Industries() {
			if strings.Contains(strings.ToLower(query), ind) {
				result.Industry = ind
				break
			}
		}
	}

	if m := ampsRe.FindStringSubmatch(query); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			result.CurrentAmps = &v
		}
	}
	if m := voltsRe.FindStringSubmatch(query); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			result.Voltage = &v
		}
	}
	if m := wattsRe.FindStringSubmatch(query); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			result.PowerWatts = &v
		}
	}
	if m := mmRe.FindStringSubmatch(query); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			result.ThicknessMM = &v
		}
	}

	result.MissingParams = missingSlots(result)
	result.Completeness = completeness(result)
	return result
}

func appendUnique(existing []string, v string) []string {
	for _, e := range existing {
		if e == v {
			return existing
		}
	}
	return append(existing, v)
}

// NormalizeProcesses validates each returned process against the enum; if
// a string is unknown, the caller may ask the LLM once more to map it
// (spec.md §4.5 step 6). This pure helper applies vocabulary normalization
// and drops anything still unresolved, logging each mapping.
func NormalizeProcesses(raw []string, vocab *vocabulary.Vocabulary, log *logrus.Logger) []string {
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		canon, ok := vocab.NormalizeProcess(p)
		if !ok {
			for _, primary := range vocab.PrimaryProcesses() {
				if strings.EqualFold(primary, p) {
					canon, ok = primary, true
					break
				}
			}
		}
		if !ok {
			if log != nil {
				log.WithField("raw_process", p).Info("dropping unrecognized process")
			}
			continue
		}
		if log != nil && !strings.EqualFold(canon, p) {
			log.WithFields(logrus.Fields{"raw_process": p, "normalized": canon}).Debug("normalized process")
		}
		out = appendUnique(out, canon)
	}
	return out
}

func missingSlots(e extraction) []string {
	var missing []string
	if len(e.Processes) == 0 {
		missing = append(missing, "processes")
	}
	if e.Material == "" {
		missing = append(missing, "material")
	}
	if e.Application == "" {
		missing = append(missing, "application")
	}
	return missing
}

func completeness(e extraction) float64 {
	total := 3.0
	filled := 0.0
	if len(e.Processes) > 0 {
		filled++
	}
	if e.Material != "" {
		filled++
	}
	if e.Application != "" {
		filled++
	}
	return filled / total
}
