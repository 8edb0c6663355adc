package recommend_test

import (
	"testing"

	"github.com/weldtech/sparky/pkg/intent"
	"github.com/weldtech/sparky/pkg/recommend"
)

func TestSelectStrategyGraphFocused(t *testing.T) {
	in := intent.ProcessedIntent{ExpertiseMode: intent.ModeExpert, Confidence: 0.8}
	if got := recommend.SelectStrategy(in, "need a welder", nil); got != recommend.StrategyGraphFocused {
		t.Errorf("expected GRAPH_FOCUSED, got %s", got)
	}
}

func TestSelectStrategyHybridDefault(t *testing.T) {
	in := intent.ProcessedIntent{ExpertiseMode: intent.ModeHybrid, Confidence: 0.5}
	if got := recommend.SelectStrategy(in, "need a welder", nil); got != recommend.StrategyHybrid {
		t.Errorf("expected HYBRID, got %s", got)
	}
}

func TestSelectStrategyExpertButLowConfidenceFallsToHybrid(t *testing.T) {
	in := intent.ProcessedIntent{ExpertiseMode: intent.ModeExpert, Confidence: 0.5}
	if got := recommend.SelectStrategy(in, "need a welder", nil); got != recommend.StrategyHybrid {
		t.Errorf("expected HYBRID when expert confidence <= 0.7, got %s", got)
	}
}

func TestWantsTrinityFirst(t *testing.T) {
	if !recommend.WantsTrinityFirst("form a complete package with Renegade 300") {
		t.Errorf("expected trinity-first trigger for 'package'")
	}
	if recommend.WantsTrinityFirst("need a 400 amp welder") {
		t.Errorf("did not expect trinity-first trigger")
	}
}

func TestMentionsProductFamily(t *testing.T) {
	tok, ok := recommend.MentionsProductFamily("Looking for a Warrior 400i")
	if !ok || tok != "warrior" {
		t.Errorf("expected 'warrior' match, got (%q, %v)", tok, ok)
	}
	if _, ok := recommend.MentionsProductFamily("generic welder"); ok {
		t.Errorf("expected no product family match")
	}
}

func TestSemanticSeedQuery(t *testing.T) {
	if got := recommend.SemanticSeedQuery([]string{"TIG"}); got != "TIG welder" {
		t.Errorf("expected 'TIG welder', got %q", got)
	}
	if got := recommend.SemanticSeedQuery([]string{"MIG"}); got != "welding power source" {
		t.Errorf("expected default seed query, got %q", got)
	}
}
