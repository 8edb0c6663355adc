package intent

import (
	"regexp"
	"strings"
)

// termMaps are static, per-language term substitutions (spec.md §4.5 step
// 2): "a pragmatic bridge, not a general translator." Unknown tokens pass
// through unchanged. The English-keyed reverse map is derived for C7's
// translate-back step.
var termMaps = map[string]map[string]string{
	"es": {
		"soldadora":  "welder",
		"soldadura":  "welding",
		"necesito":   "need",
		"acero":      "steel",
		"inoxidable": "stainless",
		"aluminio":   "aluminum",
		"para":       "for",
		"taller":     "shop",
		"máquina":    "machine",
		"maquina":    "machine",
		"nuevo":      "new",
		"principiante": "beginner",
	},
	"fr": {
		"soudure":   "welding",
		"soudeuse":  "welder",
		"besoin":    "need",
		"acier":     "steel",
		"aluminium": "aluminum",
		"pour":      "for",
		"atelier":   "shop",
		"machine":   "machine",
	},
	"de": {
		"schweißen":     "welding",
		"schweissen":    "welding",
		"schweißgerät":  "welder",
		"brauche":       "need",
		"stahl":         "steel",
		"aluminium":     "aluminum",
		"für":           "for",
		"werkstatt":     "shop",
	},
	"pt": {
		"solda":     "welding",
		"soldadora": "welder",
		"preciso":   "need",
		"aço":       "steel",
		"aco":       "steel",
		"alumínio":  "aluminum",
		"aluminio":  "aluminum",
		"para":      "for",
		"oficina":   "shop",
	},
	"it": {
		"saldatura":  "welding",
		"saldatrice": "welder",
		"bisogno":    "need",
		"acciaio":    "steel",
		"alluminio":  "aluminum",
		"per":        "for",
		"officina":   "shop",
	},
}

// phraseMaps handle multi-word terms whose word order differs from
// English (noun-adjective languages), applied before the token pass so
// "acero inoxidable" lands as "stainless steel" rather than "steel
// stainless".
var phraseMaps = map[string]map[string]string{
	"es": {
		"acero inoxidable": "stainless steel",
		"acero al carbono": "carbon steel",
	},
	"fr": {
		"acier inoxydable": "stainless steel",
		"acier au carbone": "carbon steel",
	},
	"de": {
		"edelstahl":      "stainless steel",
		"kohlenstoffstahl": "carbon steel",
	},
	"pt": {
		"aço inoxidável":  "stainless steel",
		"aco inoxidavel":  "stainless steel",
	},
	"it": {
		"acciaio inossidabile": "stainless steel",
	},
}

var wordBoundary = regexp.MustCompile(`[a-zA-ZÀ-ÿ]+`)

// Translate applies lang's static term-map to query, phrases first then
// token by token, passing unknown tokens through unchanged (spec.md §4.5
// step 2).
func Translate(query, lang string) string {
	m, ok := termMaps[lang]
	if !ok {
		return query
	}
	for phrase, english := range phraseMaps[lang] {
		re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(phrase))
		query = re.ReplaceAllString(query, english)
	}
	return wordBoundary.ReplaceAllStringFunc(query, func(tok string) string {
		if translated, ok := m[strings.ToLower(tok)]; ok {
			return translated
		}
		return tok
	})
}

// TranslateBack runs the reverse of lang's term-map over text, used by C7
// to translate user-facing strings back to the detected language (spec.md
// §4.7 step 4). Structured numeric fields are never passed through this.
func TranslateBack(text, lang string) string {
	m, ok := termMaps[lang]
	if !ok {
		return text
	}
	reverse := make(map[string]string, len(m))
	for original, english := range m {
		if _, exists := reverse[english]; !exists {
			reverse[english] = original
		}
	}
	return wordBoundary.ReplaceAllStringFunc(text, func(tok string) string {
		if original, ok := reverse[strings.ToLower(tok)]; ok {
			return original
		}
		return tok
	})
}
