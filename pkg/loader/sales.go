package loader

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/weldtech/sparky/pkg/domain"
	"github.com/weldtech/sparky/pkg/graphstore"
)

const coOccurrenceSampleOrders = 5

// salesFile mirrors sales_data.json (spec.md §6).
type salesFile struct {
	SalesRecords []salesRecord `json:"sales_records"`
}

type salesRecord struct {
	OrderID     string `json:"order_id"`
	LineNo      int    `json:"line_no"`
	GIN         string `json:"gin"`
	Customer    string `json:"customer"`
	Facility    string `json:"facility"`
	Warehouse   string `json:"warehouse"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// catalogEntry is what trinity formation needs to know about a product.
type catalogEntry struct {
	Category domain.Category
	AllInOne bool
}

// SalesLoader loads Customer/Transaction nodes, CO_OCCURS edges, and the
// Trinity nodes/edges derived from co-ordered PowerSource+Feeder+Cooler
// triples (spec.md §3).
type SalesLoader struct {
	store     graphstore.Store
	log       *logrus.Logger
	batchSize int
}

func NewSalesLoader(store graphstore.Store, log *logrus.Logger) *SalesLoader {
	return &SalesLoader{store: store, log: log, batchSize: 500}
}

func (l *SalesLoader) Validate(ctx context.Context, path string) (ValidationResult, error) {
	catalog, err := l.loadCatalog(ctx)
	if err != nil {
		return ValidationResult{}, err
	}
	_, result, err := l.validateFile(path, catalog)
	return result, err
}

func (l *SalesLoader) validateFile(path string, catalog map[string]catalogEntry) ([]salesRecord, ValidationResult, error) {
	var file salesFile
	if err := readJSONFile(path, &file); err != nil {
		return nil, ValidationResult{}, err
	}

	result := ValidationResult{TotalRecords: len(file.SalesRecords)}
	valid := make([]salesRecord, 0, len(file.SalesRecords))
	missing := map[string]bool{}

	for i, rec := range file.SalesRecords {
		id := fmt.Sprintf("%s/%d", rec.OrderID, rec.LineNo)
		if rec.OrderID == "" {
			result.addError(fmt.Sprintf("#%d", i), "missing order_id")
			continue
		}
		if rec.GIN == "" {
			result.addError(id, "missing gin")
			continue
		}
		if _, ok := catalog[rec.GIN]; !ok {
			missing[rec.GIN] = true
			result.addWarning(id, "product "+rec.GIN+" not in catalog, record skipped")
			result.InvalidRecords++
			continue
		}
		valid = append(valid, rec)
		result.ValidRecords++
	}

	result.MissingReferences = sortedKeys(missing)
	return valid, result, nil
}

// loadCatalog reads every product's category plus its all-in-one marker,
// which trinity formation needs to decide when to synthesize placeholder
// members (spec.md §3 business-rule exception).
func (l *SalesLoader) loadCatalog(ctx context.Context) (map[string]catalogEntry, error) {
	rows, err := l.store.ExecuteQuery(ctx, `
		MATCH (p:Product)
		RETURN p.gin AS gin, p.category AS category, p.specifications AS specifications`, nil)
	if err != nil {
		return nil, err
	}
	catalog := make(map[string]catalogEntry, len(rows))
	for _, row := range rows {
		gin, _ := row["gin"].(string)
		if gin == "" {
			continue
		}
		cat, _ := row["category"].(string)
		specs, _ := row["specifications"].(string)
		catalog[gin] = catalogEntry{
			Category: domain.ParseCategory(cat),
			AllInOne: gjson.Get(specs, "all_in_one").String() == "true",
		}
	}
	return catalog, nil
}

// determinesMap reads the DETERMINES edges the compatibility loader wrote:
// powersource gin -> target category -> allowed gins. Trinity formation
// treats DETERMINES as a hard filter (spec.md §9 Open Questions).
func (l *SalesLoader) determinesMap(ctx context.Context) (map[string]map[domain.Category][]string, error) {
	rows, err := l.store.ExecuteQuery(ctx, `
		MATCH (ps:Product)-[:DETERMINES]->(c:Product)
		RETURN ps.gin AS source, c.gin AS target, c.category AS category`, nil)
	if err != nil {
		return nil, err
	}
	out := map[string]map[domain.Category][]string{}
	for _, row := range rows {
		source, _ := row["source"].(string)
		target, _ := row["target"].(string)
		cat := domain.ParseCategory(fmt.Sprint(row["category"]))
		if source == "" || target == "" {
			continue
		}
		if out[source] == nil {
			out[source] = map[domain.Category][]string{}
		}
		out[source][cat] = append(out[source][cat], target)
	}
	return out, nil
}

func (l *SalesLoader) Process(ctx context.Context, path string) (ValidationResult, error) {
	catalog, err := l.loadCatalog(ctx)
	if err != nil {
		return ValidationResult{}, err
	}
	records, result, err := l.validateFile(path, catalog)
	if err != nil {
		return result, err
	}

	orders := groupByOrder(records)
	l.synthesizePlaceholders(orders, catalog)

	if err := l.createTransactionNodes(ctx, orders); err != nil {
		return result, err
	}
	if err := l.createCustomerNodes(ctx, records); err != nil {
		return result, err
	}
	if err := l.createCoOccurrences(ctx, orders); err != nil {
		return result, err
	}

	determines, err := l.determinesMap(ctx)
	if err != nil {
		return result, err
	}
	trinities := formTrinities(orders, catalog, determines)
	if err := l.createTrinities(ctx, trinities); err != nil {
		return result, err
	}

	l.log.WithFields(logrus.Fields{
		"orders":             len(orders),
		"trinities":          len(trinities),
		"missing_references": len(result.MissingReferences),
	}).Info("sales load finished")
	return result, nil
}

func groupByOrder(records []salesRecord) map[string][]salesRecord {
	orders := map[string][]salesRecord{}
	for _, rec := range records {
		orders[rec.OrderID] = append(orders[rec.OrderID], rec)
	}
	return orders
}

// synthesizePlaceholders appends "No Feeder Available" / "No Cooler
// Available" lines to orders whose PowerSource is an all-in-one unit, so
// those orders can still form Trinities. The placeholder products are
// registered in the catalog so later stages treat them as real members.
func (l *SalesLoader) synthesizePlaceholders(orders map[string][]salesRecord, catalog map[string]catalogEntry) {
	for orderID, lines := range orders {
		var allInOnePS []string
		hasFeeder, hasCooler := false, false
		maxLine := 0
		for _, rec := range lines {
			entry := catalog[rec.GIN]
			switch entry.Category {
			case domain.CategoryPowerSource:
				if entry.AllInOne {
					allInOnePS = append(allInOnePS, rec.GIN)
				}
			case domain.CategoryFeeder:
				hasFeeder = true
			case domain.CategoryCooler:
				hasCooler = true
			}
			if rec.LineNo > maxLine {
				maxLine = rec.LineNo
			}
		}
		if len(allInOnePS) == 0 {
			continue
		}

		psGIN := allInOnePS[0]
		if !hasFeeder {
			feeder := domain.PlaceholderFeeder(psGIN)
			catalog[feeder.GIN] = catalogEntry{Category: domain.CategoryFeeder}
			maxLine++
			orders[orderID] = append(orders[orderID], salesRecord{
				OrderID:     orderID,
				LineNo:      maxLine,
				GIN:         feeder.GIN,
				Category:    string(domain.CategoryFeeder),
				Description: feeder.Name + " - all-in-one unit",
			})
		}
		if !hasCooler {
			cooler := domain.PlaceholderCooler(psGIN)
			catalog[cooler.GIN] = catalogEntry{Category: domain.CategoryCooler}
			maxLine++
			orders[orderID] = append(orders[orderID], salesRecord{
				OrderID:     orderID,
				LineNo:      maxLine,
				GIN:         cooler.GIN,
				Category:    string(domain.CategoryCooler),
				Description: cooler.Name + " - all-in-one unit",
			})
		}
	}
}

func (l *SalesLoader) createTransactionNodes(ctx context.Context, orders map[string][]salesRecord) error {
	var params []map[string]any
	for _, orderID := range sortedKeys(orders) {
		for _, rec := range orders[orderID] {
			params = append(params, map[string]any{
				"order_id":    rec.OrderID,
				"line_no":     rec.LineNo,
				"gin":         rec.GIN,
				"customer":    rec.Customer,
				"facility":    rec.Facility,
				"warehouse":   rec.Warehouse,
				"category":    rec.Category,
				"description": rec.Description,
			})
		}
	}
	if len(params) == 0 {
		return nil
	}
	stmt := graphstore.Statement{
		Cypher: `
			UNWIND $transactions AS t
			MERGE (placeholder:Product {gin: t.gin})
			ON CREATE SET placeholder.name = coalesce(t.description, t.gin),
			              placeholder.category = t.category,
			              placeholder.is_available = true,
			              placeholder.created_at = datetime()
			MERGE (txn:Transaction {order_id: t.order_id, line_no: t.line_no})
			SET txn.description = t.description, txn.facility = t.facility,
			    txn.warehouse = t.warehouse, txn.category = t.category
			MERGE (txn)-[:CONTAINS]->(placeholder)`,
		Params: map[string]any{"transactions": params},
	}
	return batchStatements(ctx, l.store, []graphstore.Statement{stmt}, l.batchSize, l.log)
}

func (l *SalesLoader) createCustomerNodes(ctx context.Context, records []salesRecord) error {
	type agg struct {
		facilities map[string]bool
		warehouses map[string]bool
		categories map[string]bool
		count      int
	}
	byCustomer := map[string]*agg{}
	for _, rec := range records {
		if rec.Customer == "" {
			continue
		}
		a := byCustomer[rec.Customer]
		if a == nil {
			a = &agg{facilities: map[string]bool{}, warehouses: map[string]bool{}, categories: map[string]bool{}}
			byCustomer[rec.Customer] = a
		}
		a.count++
		if rec.Facility != "" {
			a.facilities[rec.Facility] = true
		}
		if rec.Warehouse != "" {
			a.warehouses[rec.Warehouse] = true
		}
		if rec.Category != "" {
			a.categories[rec.Category] = true
		}
	}
	if len(byCustomer) == 0 {
		return nil
	}

	var params []map[string]any
	for _, name := range sortedKeys(byCustomer) {
		a := byCustomer[name]
		params = append(params, map[string]any{
			"name":              name,
			"facilities":        sortedKeys(a.facilities),
			"warehouses":        sortedKeys(a.warehouses),
			"categories":        sortedKeys(a.categories),
			"transaction_count": a.count,
		})
	}
	var madeParams []map[string]any
	for _, rec := range records {
		if rec.Customer == "" {
			continue
		}
		madeParams = append(madeParams, map[string]any{
			"name":     rec.Customer,
			"order_id": rec.OrderID,
			"line_no":  rec.LineNo,
		})
	}
	stmts := []graphstore.Statement{
		{
			Cypher: `
				UNWIND $customers AS c
				MERGE (cust:Customer {name: c.name})
				SET cust.facilities = c.facilities, cust.warehouses = c.warehouses,
				    cust.product_categories = c.categories, cust.transaction_count = c.transaction_count`,
			Params: map[string]any{"customers": params},
		},
		{
			Cypher: `
				UNWIND $made AS m
				MATCH (cust:Customer {name: m.name})
				MATCH (txn:Transaction {order_id: m.order_id, line_no: m.line_no})
				MERGE (cust)-[:MADE]->(txn)`,
			Params: map[string]any{"made": madeParams},
		},
	}
	return batchStatements(ctx, l.store, stmts, l.batchSize, l.log)
}

// coOccurrence accumulates one unordered product pair's statistics across
// orders.
type coOccurrence struct {
	a, b         string
	frequency    int
	sampleOrders []string
}

// createCoOccurrences rebuilds CO_OCCURS from scratch: every unordered
// pair of distinct products appearing in the same order yields a
// bidirectional pair of edges (spec.md §3).
func (l *SalesLoader) createCoOccurrences(ctx context.Context, orders map[string][]salesRecord) error {
	if err := l.store.ExecuteWrite(ctx, `MATCH ()-[r:CO_OCCURS]->() DELETE r`, nil); err != nil {
		return err
	}

	pairs := map[string]*coOccurrence{}
	for _, orderID := range sortedKeys(orders) {
		gins := map[string]bool{}
		for _, rec := range orders[orderID] {
			gins[rec.GIN] = true
		}
		unique := sortedKeys(gins)
		for i := 0; i < len(unique); i++ {
			for j := i + 1; j < len(unique); j++ {
				key := unique[i] + "|" + unique[j]
				co := pairs[key]
				if co == nil {
					co = &coOccurrence{a: unique[i], b: unique[j]}
					pairs[key] = co
				}
				co.frequency++
				if len(co.sampleOrders) < coOccurrenceSampleOrders {
					co.sampleOrders = append(co.sampleOrders, orderID)
				}
			}
		}
	}
	if len(pairs) == 0 {
		return nil
	}

	totalOrders := len(orders)
	var params []map[string]any
	for _, key := range sortedKeys(pairs) {
		co := pairs[key]
		confidence := float64(co.frequency) / float64(totalOrders)
		if confidence > 1 {
			confidence = 1
		}
		params = append(params, map[string]any{
			"a":             co.a,
			"b":             co.b,
			"frequency":     co.frequency,
			"orders_count":  co.frequency,
			"confidence":    confidence,
			"sample_orders": co.sampleOrders,
		})
	}
	stmt := graphstore.Statement{
		Cypher: `
			UNWIND $pairs AS pair
			MATCH (a:Product {gin: pair.a})
			MATCH (b:Product {gin: pair.b})
			CREATE (a)-[:CO_OCCURS {
				frequency: pair.frequency, orders_count: pair.orders_count,
				last_occurrence_date: datetime(), confidence_score: pair.confidence,
				sample_orders: pair.sample_orders
			}]->(b)
			CREATE (b)-[:CO_OCCURS {
				frequency: pair.frequency, orders_count: pair.orders_count,
				last_occurrence_date: datetime(), confidence_score: pair.confidence,
				sample_orders: pair.sample_orders
			}]->(a)`,
		Params: map[string]any{"pairs": params},
	}
	return batchStatements(ctx, l.store, []graphstore.Statement{stmt}, l.batchSize, l.log)
}

// trinityCandidate is one resolved PowerSource+Feeder+Cooler triple in an
// order, with the transaction line that anchors its FORMS_TRINITY edges.
type trinityCandidate struct {
	orderID   string
	lineNo    int
	trinityID string
	psGIN     string
	feederGIN string
	coolerGIN string
}

// formTrinities resolves every order's PowerSources against the order's
// own Feeders/Coolers. A PowerSource with DETERMINES rules only accepts
// members from its determined set; one without rules accepts any member
// in the order; an all-in-one PowerSource takes its synthesized
// placeholders. PowerSources with no resolvable Feeder or Cooler form no
// Trinity (spec.md §3 invariant).
func formTrinities(orders map[string][]salesRecord, catalog map[string]catalogEntry, determines map[string]map[domain.Category][]string) []trinityCandidate {
	var out []trinityCandidate
	for _, orderID := range sortedKeys(orders) {
		lines := orders[orderID]
		byCategory := map[domain.Category][]string{}
		lineForGIN := map[string]int{}
		for _, rec := range lines {
			cat := catalog[rec.GIN].Category
			byCategory[cat] = append(byCategory[cat], rec.GIN)
			lineForGIN[rec.GIN] = rec.LineNo
		}

		for _, psGIN := range byCategory[domain.CategoryPowerSource] {
			feeder := pickComponent(psGIN, byCategory[domain.CategoryFeeder], domain.CategoryFeeder, determines)
			cooler := pickComponent(psGIN, byCategory[domain.CategoryCooler], domain.CategoryCooler, determines)
			if catalog[psGIN].AllInOne {
				if feeder == "" {
					feeder = domain.PlaceholderFeeder(psGIN).GIN
				}
				if cooler == "" {
					cooler = domain.PlaceholderCooler(psGIN).GIN
				}
			}
			if feeder == "" || cooler == "" {
				continue
			}
			out = append(out, trinityCandidate{
				orderID:   orderID,
				lineNo:    lineForGIN[psGIN],
				trinityID: domain.TrinityID(psGIN, feeder, cooler),
				psGIN:     psGIN,
				feederGIN: feeder,
				coolerGIN: cooler,
			})
		}
	}
	return out
}

// pickComponent selects the first candidate allowed by the PowerSource's
// DETERMINES set, or the first candidate at all when no rule constrains
// the category.
func pickComponent(psGIN string, candidates []string, category domain.Category, determines map[string]map[domain.Category][]string) string {
	if len(candidates) == 0 {
		return ""
	}
	allowed := determines[psGIN][category]
	if len(allowed) == 0 {
		sorted := append([]string(nil), candidates...)
		sort.Strings(sorted)
		return sorted[0]
	}
	allowedSet := map[string]bool{}
	for _, gin := range allowed {
		allowedSet[gin] = true
	}
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)
	for _, gin := range sorted {
		if allowedSet[gin] {
			return gin
		}
	}
	return ""
}

func (l *SalesLoader) createTrinities(ctx context.Context, candidates []trinityCandidate) error {
	if err := l.store.ExecuteWrite(ctx, `MATCH ()-[r:FORMS_TRINITY]->() DELETE r`, nil); err != nil {
		return err
	}
	if err := l.store.ExecuteWrite(ctx, `MATCH (t:Trinity) DETACH DELETE t`, nil); err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	// Aggregate order counts per distinct triple.
	counts := map[string]int{}
	byID := map[string]trinityCandidate{}
	for _, c := range candidates {
		counts[c.trinityID]++
		byID[c.trinityID] = c
	}

	var trinityParams []map[string]any
	for _, id := range sortedKeys(byID) {
		c := byID[id]
		trinityParams = append(trinityParams, map[string]any{
			"trinity_id":  id,
			"ps_gin":      c.psGIN,
			"feeder_gin":  c.feederGIN,
			"cooler_gin":  c.coolerGIN,
			"order_count": counts[id],
		})
	}

	var formsParams []map[string]any
	for _, c := range candidates {
		formsParams = append(formsParams, map[string]any{
			"order_id":   c.orderID,
			"line_no":    c.lineNo,
			"trinity_id": c.trinityID,
			"ps_gin":     c.psGIN,
			"feeder_gin": c.feederGIN,
			"cooler_gin": c.coolerGIN,
		})
	}

	stmts := []graphstore.Statement{
		{
			Cypher: `
				UNWIND $trinities AS t
				MATCH (ps:Product {gin: t.ps_gin})
				MATCH (f:Product {gin: t.feeder_gin})
				MATCH (c:Product {gin: t.cooler_gin})
				CREATE (tri:Trinity {trinity_id: t.trinity_id, order_count: t.order_count})
				CREATE (tri)-[:COMPRISES {component_type: 'PowerSource'}]->(ps)
				CREATE (tri)-[:COMPRISES {component_type: 'Feeder'}]->(f)
				CREATE (tri)-[:COMPRISES {component_type: 'Cooler'}]->(c)`,
			Params: map[string]any{"trinities": trinityParams},
		},
		{
			Cypher: `
				UNWIND $forms AS t
				MATCH (txn:Transaction {order_id: t.order_id, line_no: t.line_no})
				MATCH (ps:Product {gin: t.ps_gin})
				MATCH (f:Product {gin: t.feeder_gin})
				MATCH (c:Product {gin: t.cooler_gin})
				CREATE (txn)-[:FORMS_TRINITY {trinity_id: t.trinity_id, component_type: 'PowerSource'}]->(ps)
				CREATE (txn)-[:FORMS_TRINITY {trinity_id: t.trinity_id, component_type: 'Feeder'}]->(f)
				CREATE (txn)-[:FORMS_TRINITY {trinity_id: t.trinity_id, component_type: 'Cooler'}]->(c)`,
			Params: map[string]any{"forms": formsParams},
		},
	}
	return batchStatements(ctx, l.store, stmts, l.batchSize, l.log)
}

func (l *SalesLoader) CreateIndexes(ctx context.Context) error {
	stmts := []string{
		`CREATE INDEX transaction_order_index IF NOT EXISTS FOR (t:Transaction) ON (t.order_id)`,
		`CREATE INDEX customer_name_index IF NOT EXISTS FOR (c:Customer) ON (c.name)`,
		`CREATE INDEX trinity_id_index IF NOT EXISTS FOR (t:Trinity) ON (t.trinity_id)`,
		`CREATE INDEX co_occurs_frequency_index IF NOT EXISTS FOR ()-[r:CO_OCCURS]-() ON (r.frequency)`,
	}
	for _, stmt := range stmts {
		if err := l.store.ExecuteWrite(ctx, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}
