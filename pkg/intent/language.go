package intent

import "strings"

// supportedLanguages lists compact keyword sets per language (spec.md §4.5
// step 1). Languages outside this set fall through to en.
var supportedLanguages = map[string][]string{
	"es": {"soldadora", "soldadura", "necesito", "acero", "aluminio", "para", "taller", "máquina", "maquina"},
	"fr": {"soudure", "soudeuse", "besoin", "acier", "aluminium", "pour", "atelier", "machine"},
	"de": {"schweißen", "schweissen", "schweißgerät", "brauche", "stahl", "aluminium", "für", "werkstatt"},
	"pt": {"solda", "soldadora", "preciso", "aço", "aco", "alumínio", "aluminio", "para", "oficina"},
	"it": {"saldatura", "saldatrice", "bisogno", "acciaio", "alluminio", "per", "officina"},
}

const defaultLanguage = "en"

// DetectLanguage scores the lowercased query against each language's
// keyword set. The highest-scoring language wins; ties and zero matches
// default to en (spec.md §4.5 step 1).
func DetectLanguage(query string) (lang string, confidence float64) {
	lower := strings.ToLower(query)
	words := strings.Fields(lower)
	if len(words) == 0 {
		return defaultLanguage, 1.0
	}

	bestLang := defaultLanguage
	bestCount := 0
	tied := false
	for lang, keywords := range supportedLanguages {
		count := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			bestLang = lang
			tied = false
		} else if count == bestCount && count > 0 {
			tied = true
		}
	}

	if bestCount == 0 || tied {
		return defaultLanguage, 1.0
	}

	confidence = float64(bestCount) / float64(len(words))
	if confidence > 1.0 {
		confidence = 1.0
	}
	if confidence < 0.5 {
		confidence = 0.5 + confidence/2
	}
	return bestLang, confidence
}
