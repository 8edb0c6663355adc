package intent

// Mode is the detected expertise level that steers both C6's strategy
// routing and C7's explanation register.
type Mode string

const (
	ModeExpert Mode = "EXPERT"
	ModeGuided Mode = "GUIDED"
	ModeHybrid Mode = "HYBRID"
)

// UserContext carries everything the caller knows about the requester
// (spec.md §4.5 Inputs).
type UserContext struct {
	UserID            string
	SessionID         string
	PreferredLanguage string
	ExpertiseHistory  []string
	PreviousQueries   []string
	IndustryContext   string
	Organization      string
	Role              string
}

// ProcessedIntent is C5's public output (spec.md §4.5).
type ProcessedIntent struct {
	Query                  string
	DetectedLanguage       string
	LanguageConfidence     float64
	TranslatedQuery        string
	ExpertiseMode          Mode
	ExpertiseScore         float64
	Processes              []string
	Material               string
	PowerWatts             *float64
	CurrentAmps            *float64
	Voltage                *float64
	ThicknessMM            *float64
	Environment            string
	Application            string
	Industry               string
	MentionedProduct       string
	Organization           string
	Confidence             float64
	Completeness           float64
	MissingParams          []string
	NeedsClarification     bool
	ClarificationQuestions []string
	Errors                 []string
}

// extraction is the raw structured-extraction payload, either parsed from
// the LLM's JSON response or synthesized by the regex fallback or the
// product-specific matcher.
type extraction struct {
	Processes     []string `json:"processes"`
	Material      string   `json:"material"`
	PowerWatts    *float64 `json:"power_watts"`
	CurrentAmps   *float64 `json:"current_amps"`
	Voltage       *float64 `json:"voltage"`
	ThicknessMM   *float64 `json:"thickness_mm"`
	Environment   string   `json:"environment"`
	Application   string   `json:"application"`
	Industry      string   `json:"industry"`
	Confidence    float64  `json:"confidence"`
	Completeness  float64  `json:"completeness"`
	MissingParams []string `json:"missing_params"`
}
