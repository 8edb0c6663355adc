package loader_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/weldtech/sparky/pkg/graphstore/graphstoretest"
	"github.com/weldtech/sparky/pkg/loader"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// catalogStore answers the product-catalog query with the given GINs and
// optional categories/specs.
func catalogStore(rows []map[string]any) *graphstoretest.Store {
	return &graphstoretest.Store{
		QueryFn: func(stmt string, params map[string]any) ([]map[string]any, error) {
			if strings.Contains(stmt, "MATCH (p:Product)") {
				return rows, nil
			}
			return nil, nil
		},
	}
}

func TestProductLoaderRejectsDuplicateGINs(t *testing.T) {
	path := writeFile(t, "products.json", `[
		{"gin_number": "0446200880", "product_name": "Warrior 400i", "component_category": "PowerSource"},
		{"gin_number": "0446200880", "product_name": "Warrior 400i copy", "component_category": "PowerSource"},
		{"gin_number": "0465250880", "product_name": "RobustFeed U6", "component_category": "Feeder"}
	]`)

	l := loader.NewProductLoader(&graphstoretest.Store{}, nil, testLogger())
	result, err := l.Validate(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, 3, result.TotalRecords)
	require.Equal(t, 2, result.ValidRecords)
	require.Equal(t, []string{"0446200880"}, result.DuplicateKeys)
}

func TestProductLoaderSkipsRecordsMissingRequiredFields(t *testing.T) {
	path := writeFile(t, "products.json", `[
		{"gin_number": "", "product_name": "nameless", "component_category": "Feeder"},
		{"gin_number": "0445", "product_name": "", "component_category": "Feeder"},
		{"gin_number": "0446", "product_name": "Cool 2", "component_category": "Cooler"}
	]`)

	l := loader.NewProductLoader(&graphstoretest.Store{}, nil, testLogger())
	result, err := l.Validate(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 1, result.ValidRecords)
	require.Equal(t, 2, result.InvalidRecords)
	require.Len(t, result.Errors, 2)
}

func TestProductLoaderCreatesAndUpdatesByExistence(t *testing.T) {
	path := writeFile(t, "products.json", `[
		{"gin_number": "known", "product_name": "Warrior 400i", "component_category": "PowerSource"},
		{"gin_number": "new", "product_name": "Cool 2", "component_category": "Cooler"}
	]`)

	store := catalogStore([]map[string]any{{"gin": "known"}})
	l := loader.NewProductLoader(store, nil, testLogger())
	result, err := l.Process(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 2, result.ValidRecords)

	var sawCreate, sawUpdate bool
	for _, w := range store.Writes {
		if strings.Contains(w.Cypher, "CREATE (p:Product") {
			sawCreate = true
		}
		if strings.Contains(w.Cypher, "MATCH (p:Product {gin: product.gin})") {
			sawUpdate = true
		}
	}
	require.True(t, sawCreate, "expected a CREATE batch for the new product")
	require.True(t, sawUpdate, "expected a MATCH+SET batch for the existing product")
}

func TestCompatibilityLoaderReportsMissingReferences(t *testing.T) {
	path := writeFile(t, "rules.json", `{"compatibility_rules": [
		{"rule_id": "r1", "rule_type": "COMPATIBLE_WITH", "source_gin": "a", "target_gin": "b", "confidence": 0.9},
		{"rule_id": "r2", "rule_type": "COMPATIBLE_WITH", "source_gin": "a", "target_gin": "ghost", "confidence": 0.9}
	]}`)

	store := catalogStore([]map[string]any{{"gin": "a"}, {"gin": "b"}})
	l := loader.NewCompatibilityLoader(store, testLogger())
	result, err := l.Process(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, 1, result.ValidRecords)
	require.Equal(t, []string{"ghost"}, result.MissingReferences)
}

func TestCompatibilityLoaderClampsInvalidConfidence(t *testing.T) {
	path := writeFile(t, "rules.json", `{"compatibility_rules": [
		{"rule_id": "r1", "rule_type": "DETERMINES", "source_gin": "a", "target_gin": "b", "confidence": 3.5}
	]}`)

	store := catalogStore([]map[string]any{{"gin": "a"}, {"gin": "b"}})
	l := loader.NewCompatibilityLoader(store, testLogger())
	_, err := l.Process(context.Background(), path)
	require.NoError(t, err)

	found := false
	for _, w := range store.Writes {
		rules, ok := w.Params["rules"].([]map[string]any)
		if !ok {
			continue
		}
		for _, r := range rules {
			require.Equal(t, 0.95, r["confidence"], "out-of-range confidence must clamp to 0.95")
			found = true
		}
	}
	require.True(t, found, "expected a DETERMINES write")
}

func TestCompatibilityLoaderDeletesBeforeCreating(t *testing.T) {
	path := writeFile(t, "rules.json", `{"compatibility_rules": [
		{"rule_id": "r1", "rule_type": "COMPATIBLE_WITH", "source_gin": "a", "target_gin": "b", "confidence": 0.9}
	]}`)

	store := catalogStore([]map[string]any{{"gin": "a"}, {"gin": "b"}})
	l := loader.NewCompatibilityLoader(store, testLogger())
	_, err := l.Process(context.Background(), path)
	require.NoError(t, err)

	require.NotEmpty(t, store.Writes)
	require.Contains(t, store.Writes[0].Cypher, "DELETE r", "edge rebuild must start with a delete pass")
}

func salesCatalogRows() []map[string]any {
	return []map[string]any{
		{"gin": "ps1", "category": "PowerSource", "specifications": "{}"},
		{"gin": "fd1", "category": "Feeder", "specifications": "{}"},
		{"gin": "cl1", "category": "Cooler", "specifications": "{}"},
		{"gin": "aio1", "category": "PowerSource", "specifications": `{"all_in_one":"true"}`},
		{"gin": "tor1", "category": "Torch", "specifications": "{}"},
	}
}

func salesStore() *graphstoretest.Store {
	return &graphstoretest.Store{
		QueryFn: func(stmt string, params map[string]any) ([]map[string]any, error) {
			switch {
			case strings.Contains(stmt, "DETERMINES"):
				return nil, nil
			case strings.Contains(stmt, "MATCH (p:Product)"):
				return salesCatalogRows(), nil
			}
			return nil, nil
		},
	}
}

func TestSalesLoaderFormsTrinityFromCompleteOrder(t *testing.T) {
	path := writeFile(t, "sales.json", `{"sales_records": [
		{"order_id": "o1", "line_no": 1, "gin": "ps1", "customer": "Acme", "category": "PowerSource"},
		{"order_id": "o1", "line_no": 2, "gin": "fd1", "customer": "Acme", "category": "Feeder"},
		{"order_id": "o1", "line_no": 3, "gin": "cl1", "customer": "Acme", "category": "Cooler"}
	]}`)

	store := salesStore()
	l := loader.NewSalesLoader(store, testLogger())
	result, err := l.Process(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 3, result.ValidRecords)

	var sawTrinity bool
	for _, w := range store.Writes {
		if strings.Contains(w.Cypher, "CREATE (tri:Trinity") {
			sawTrinity = true
			trinities := w.Params["trinities"].([]map[string]any)
			require.Len(t, trinities, 1)
			require.Equal(t, "ps1", trinities[0]["ps_gin"])
			require.Equal(t, "fd1", trinities[0]["feeder_gin"])
			require.Equal(t, "cl1", trinities[0]["cooler_gin"])
		}
	}
	require.True(t, sawTrinity, "expected a Trinity write")
}

func TestSalesLoaderSkipsPowerSourceWithoutCompanions(t *testing.T) {
	path := writeFile(t, "sales.json", `{"sales_records": [
		{"order_id": "o1", "line_no": 1, "gin": "ps1", "customer": "Acme", "category": "PowerSource"},
		{"order_id": "o1", "line_no": 2, "gin": "tor1", "customer": "Acme", "category": "Torch"}
	]}`)

	store := salesStore()
	l := loader.NewSalesLoader(store, testLogger())
	_, err := l.Process(context.Background(), path)
	require.NoError(t, err)

	for _, w := range store.Writes {
		require.NotContains(t, w.Cypher, "CREATE (tri:Trinity", "incomplete order must not form a Trinity")
	}
}

func TestSalesLoaderSynthesizesPlaceholdersForAllInOne(t *testing.T) {
	path := writeFile(t, "sales.json", `{"sales_records": [
		{"order_id": "o2", "line_no": 1, "gin": "aio1", "customer": "Solo", "category": "PowerSource"}
	]}`)

	store := salesStore()
	l := loader.NewSalesLoader(store, testLogger())
	_, err := l.Process(context.Background(), path)
	require.NoError(t, err)

	var sawTrinity bool
	for _, w := range store.Writes {
		if strings.Contains(w.Cypher, "CREATE (tri:Trinity") {
			sawTrinity = true
			trinities := w.Params["trinities"].([]map[string]any)
			require.Len(t, trinities, 1)
			require.Equal(t, "placeholder-feeder-aio1", trinities[0]["feeder_gin"])
			require.Equal(t, "placeholder-cooler-aio1", trinities[0]["cooler_gin"])
		}
	}
	require.True(t, sawTrinity, "all-in-one PowerSource must still form a Trinity")
}

func TestSalesLoaderReportsMissingProductReferences(t *testing.T) {
	path := writeFile(t, "sales.json", `{"sales_records": [
		{"order_id": "o1", "line_no": 1, "gin": "ghost", "customer": "Acme", "category": "PowerSource"},
		{"order_id": "o1", "line_no": 2, "gin": "fd1", "customer": "Acme", "category": "Feeder"}
	]}`)

	store := salesStore()
	l := loader.NewSalesLoader(store, testLogger())
	result, err := l.Process(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, 1, result.ValidRecords)
	require.Equal(t, []string{"ghost"}, result.MissingReferences)
}

func TestSalesLoaderCoOccurrencePairsAreBidirectional(t *testing.T) {
	path := writeFile(t, "sales.json", `{"sales_records": [
		{"order_id": "o1", "line_no": 1, "gin": "ps1", "customer": "Acme", "category": "PowerSource"},
		{"order_id": "o1", "line_no": 2, "gin": "fd1", "customer": "Acme", "category": "Feeder"}
	]}`)

	store := salesStore()
	l := loader.NewSalesLoader(store, testLogger())
	_, err := l.Process(context.Background(), path)
	require.NoError(t, err)

	var sawPair bool
	for _, w := range store.Writes {
		if strings.Contains(w.Cypher, "CO_OCCURS") && w.Params != nil {
			pairs, ok := w.Params["pairs"].([]map[string]any)
			if !ok {
				continue
			}
			sawPair = true
			require.Len(t, pairs, 1)
			require.Equal(t, 1, pairs[0]["frequency"])
			require.Equal(t, 2, strings.Count(w.Cypher, "CREATE"), "one pair must create both edge directions")
		}
	}
	require.True(t, sawPair, "expected a CO_OCCURS write")
}
