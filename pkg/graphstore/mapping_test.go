package graphstore

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/weldtech/sparky/pkg/domain"
)

func TestNodeToProduct(t *testing.T) {
	node := dbtype.Node{
		Props: map[string]any{
			"gin":             "W1234",
			"name":            "Warrior 400i",
			"category":        "PowerSource",
			"is_available":    true,
			"sales_frequency": int64(42),
			"price":           float64(3200.50),
		},
	}
	p := nodeToProduct(node)
	if p.GIN != "W1234" || p.Name != "Warrior 400i" || p.Category != domain.CategoryPowerSource {
		t.Errorf("nodeToProduct mismatched basic fields: %+v", p)
	}
	if !p.IsAvailable || p.SalesFrequency != 42 {
		t.Errorf("nodeToProduct mismatched numeric fields: %+v", p)
	}
	if p.Price == nil || *p.Price != 3200.50 {
		t.Errorf("nodeToProduct price = %v, want 3200.50", p.Price)
	}
}

func TestNodeToProductMissingOptionalFields(t *testing.T) {
	node := dbtype.Node{Props: map[string]any{"gin": "X1", "name": "Mystery", "category": "unknown-cat"}}
	p := nodeToProduct(node)
	if p.Category != domain.CategoryUnknown {
		t.Errorf("expected unrecognized category to map to Unknown, got %v", p.Category)
	}
	if p.Price != nil {
		t.Errorf("expected nil price when absent, got %v", p.Price)
	}
}

func TestAsHelpers(t *testing.T) {
	if asString(nil) != "" {
		t.Errorf("asString(nil) should be empty")
	}
	if asBool(nil) != false {
		t.Errorf("asBool(nil) should be false")
	}
	if asInt64(float64(7)) != 7 {
		t.Errorf("asInt64(float64(7)) should be 7")
	}
	if asFloat64(int64(7)) != 7.0 {
		t.Errorf("asFloat64(int64(7)) should be 7.0")
	}
}
