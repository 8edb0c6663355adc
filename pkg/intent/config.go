package intent

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/weldtech/sparky/internal/errors"
)

// ModeDetectionConfig is the loaded content of mode_detection.yaml
// (spec.md §6 Configuration).
type ModeDetectionConfig struct {
	ExpertWeight        float64  `yaml:"expert_weight"`
	GuidedWeight        float64  `yaml:"guided_weight"`
	ConfidenceThreshold float64  `yaml:"confidence_threshold"`
	ExpertSignals       []string `yaml:"expert_signals"`
	GuidedSignals       []string `yaml:"guided_signals"`
	BeginnerPhrases     []string `yaml:"beginner_phrases"`
	GuidedFlowPatterns  []string `yaml:"guided_flow_patterns"`
}

// LoadModeDetectionConfig reads and parses mode_detection.yaml.
func LoadModeDetectionConfig(path string) (*ModeDetectionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FailedToWithDetails("load mode detection config", "intent", path, err)
	}
	var cfg ModeDetectionConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.ParseError(path, "yaml", err)
	}
	return &cfg, nil
}

// MatchesGuidedFlow reports whether the raw query matches any configured
// guided-flow intent pattern (spec.md §4.6.1's Guided-flow strategy
// trigger).
func (c *ModeDetectionConfig) MatchesGuidedFlow(query string) bool {
	lower := strings.ToLower(query)
	for _, pattern := range c.GuidedFlowPatterns {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

func (c *ModeDetectionConfig) countMatches(lower string, signals []string) int {
	n := 0
	for _, s := range signals {
		if strings.Contains(lower, strings.ToLower(s)) {
			n++
		}
	}
	return n
}

func (c *ModeDetectionConfig) hasBeginnerPhrase(lower string) bool {
	for _, p := range c.BeginnerPhrases {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}
