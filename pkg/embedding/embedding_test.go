package embedding_test

import (
	"context"
	"strings"
	"testing"

	"github.com/weldtech/sparky/pkg/domain"
	"github.com/weldtech/sparky/pkg/embedding"
)

func TestStripHTML(t *testing.T) {
	got := embedding.StripHTML("<p>400 <b>amps</b></p>")
	if strings.Contains(got, "<") {
		t.Errorf("StripHTML left markup: %q", got)
	}
}

func TestStripHTMLPlainTextUnchanged(t *testing.T) {
	if got := embedding.StripHTML("plain text, no markup"); got != "plain text, no markup" {
		t.Errorf("StripHTML mutated plain text: %q", got)
	}
}

func TestNormalizeUnits(t *testing.T) {
	got := embedding.NormalizeUnits("400 amps at 40 volts")
	if !strings.Contains(got, "amp") || !strings.Contains(got, "volt") {
		t.Errorf("NormalizeUnits = %q", got)
	}
}

func TestBuildProductText(t *testing.T) {
	p := domain.Product{
		GIN:      "W1234",
		Name:     "Warrior 400i",
		Category: domain.CategoryPowerSource,
		Specifications: map[string]string{
			"amperage": "<b>400 amps</b>",
		},
		Description: "Rugged inverter power source.",
	}
	text := embedding.BuildProductText(p)
	for _, want := range []string{"Warrior", "400i", "PowerSource", "amperage", "amp", "inverter"} {
		if !strings.Contains(text, want) {
			t.Errorf("BuildProductText missing %q in %q", want, text)
		}
	}
	if strings.Contains(text, "<b>") {
		t.Errorf("BuildProductText leaked HTML: %q", text)
	}
}

func TestCleanQueryText(t *testing.T) {
	if got := embedding.CleanQueryText("  need   a   MIG   welder  "); got != "need a MIG welder" {
		t.Errorf("CleanQueryText = %q", got)
	}
}

func TestServiceDegradesWithoutEndpoint(t *testing.T) {
	svc := embedding.NewService("", 0, nil)
	vec, err := svc.EmbedQuery(context.Background(), "aluminum MIG welding")
	if err != nil {
		t.Fatalf("expected degraded local embedding, got error: %v", err)
	}
	if len(vec) != embedding.Dimension {
		t.Errorf("vector dim = %d, want %d", len(vec), embedding.Dimension)
	}
}

func TestServiceIsDeterministic(t *testing.T) {
	svc := embedding.NewService("", 0, nil)
	v1, _ := svc.EmbedQuery(context.Background(), "same text")
	v2, _ := svc.EmbedQuery(context.Background(), "same text")
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("embedding not deterministic at index %d: %v != %v", i, v1[i], v2[i])
		}
	}
}

func TestEmbedProductReturnsBuiltText(t *testing.T) {
	svc := embedding.NewService("", 0, nil)
	p := domain.Product{GIN: "W1", Name: "Renegade 300", Category: domain.CategoryPowerSource}
	_, text, err := svc.EmbedProduct(context.Background(), p)
	if err != nil {
		t.Fatalf("EmbedProduct error: %v", err)
	}
	if !strings.Contains(text, "Renegade") {
		t.Errorf("expected built text to contain product name, got %q", text)
	}
}
