package loader

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/sync/errgroup"

	"github.com/weldtech/sparky/pkg/domain"
	"github.com/weldtech/sparky/pkg/embedding"
	"github.com/weldtech/sparky/pkg/graphstore"
)

const specValueMaxLen = 500

// productRecord mirrors one entry of enhanced_simplified_products.json
// (spec.md §6 data-loader input formats).
type productRecord struct {
	GIN                string         `json:"gin_number"`
	Name               string         `json:"product_name"`
	Category           string         `json:"component_category"`
	Subcategory        string         `json:"subcategory"`
	Description        string         `json:"description"`
	Specifications     map[string]any `json:"specifications"`
	Price              *float64       `json:"price"`
	ImageURL           string         `json:"image_url"`
	DatasheetURL       string         `json:"datasheet_url"`
	CountriesAvailable []string       `json:"countries_available"`
	IsAvailable        *bool          `json:"is_available"`
}

// ProductLoader loads Product nodes. Re-runs update existing nodes in
// place (MATCH+SET) rather than duplicating them.
type ProductLoader struct {
	store     graphstore.Store
	embedder  embedding.Service
	log       *logrus.Logger
	batchSize int
}

func NewProductLoader(store graphstore.Store, embedder embedding.Service, log *logrus.Logger) *ProductLoader {
	return &ProductLoader{store: store, embedder: embedder, log: log, batchSize: 500}
}

func (l *ProductLoader) Validate(ctx context.Context, path string) (ValidationResult, error) {
	_, result, err := l.validateFile(path)
	return result, err
}

func (l *ProductLoader) validateFile(path string) ([]productRecord, ValidationResult, error) {
	var raw []productRecord
	if err := readJSONFile(path, &raw); err != nil {
		return nil, ValidationResult{}, err
	}

	result := ValidationResult{TotalRecords: len(raw)}
	seen := map[string]bool{}
	valid := make([]productRecord, 0, len(raw))

	for i, rec := range raw {
		id := rec.GIN
		if id == "" {
			id = fmt.Sprintf("#%d", i)
		}
		if rec.GIN == "" {
			result.addError(id, "missing gin_number")
			continue
		}
		if rec.Name == "" {
			result.addError(id, "missing product_name")
			continue
		}
		if seen[rec.GIN] {
			// gin is unique within Product; duplicates are rejected at
			// load (spec.md §3).
			result.DuplicateKeys = append(result.DuplicateKeys, rec.GIN)
			result.addError(id, "duplicate gin")
			continue
		}
		seen[rec.GIN] = true

		if domain.ParseCategory(rec.Category) == domain.CategoryUnknown && rec.Category != string(domain.CategoryUnknown) {
			result.addWarning(id, "unrecognized category "+rec.Category+", loading as Unknown")
		}
		valid = append(valid, rec)
		result.ValidRecords++
	}
	return valid, result, nil
}

func (l *ProductLoader) Process(ctx context.Context, path string) (ValidationResult, error) {
	records, result, err := l.validateFile(path)
	if err != nil {
		return result, err
	}

	existing, err := productCatalog(ctx, l.store)
	if err != nil {
		return result, err
	}

	var creates, updates []map[string]any
	for _, rec := range records {
		param := l.toParams(rec)
		if existing[rec.GIN] {
			updates = append(updates, param)
		} else {
			creates = append(creates, param)
		}
	}

	if len(creates) > 0 {
		stmt := graphstore.Statement{
			Cypher: `
				UNWIND $products AS product
				CREATE (p:Product {gin: product.gin})
				SET p += product, p.created_at = datetime(), p.updated_at = datetime()`,
			Params: map[string]any{"products": creates},
		}
		if err := batchStatements(ctx, l.store, []graphstore.Statement{stmt}, l.batchSize, l.log); err != nil {
			return result, err
		}
	}
	if len(updates) > 0 {
		stmt := graphstore.Statement{
			Cypher: `
				UNWIND $products AS product
				MATCH (p:Product {gin: product.gin})
				SET p += product, p.updated_at = datetime()`,
			Params: map[string]any{"products": updates},
		}
		if err := batchStatements(ctx, l.store, []graphstore.Statement{stmt}, l.batchSize, l.log); err != nil {
			return result, err
		}
	}

	l.log.WithFields(logrus.Fields{
		"created": len(creates),
		"updated": len(updates),
		"skipped": result.InvalidRecords,
	}).Info("product load finished")
	return result, nil
}

func (l *ProductLoader) toParams(rec productRecord) map[string]any {
	isAvailable := true
	if rec.IsAvailable != nil {
		isAvailable = *rec.IsAvailable
	}
	params := map[string]any{
		"gin":                 rec.GIN,
		"name":                rec.Name,
		"category":            string(domain.ParseCategory(rec.Category)),
		"subcategory":         rec.Subcategory,
		"description":         rec.Description,
		"specifications":      flattenSpecifications(rec.Specifications),
		"image_url":           rec.ImageURL,
		"datasheet_url":       rec.DatasheetURL,
		"countries_available": rec.CountriesAvailable,
		"is_available":        isAvailable,
	}
	if rec.Price != nil {
		params["price"] = *rec.Price
	}
	return params
}

// flattenSpecifications serializes the semi-structured specifications map
// into the JSON-string property the graph store expects (spec.md §3):
// nested maps are flattened one level, long values truncated.
func flattenSpecifications(specs map[string]any) string {
	out := "{}"
	for _, key := range sortedKeys(specs) {
		switch v := specs[key].(type) {
		case map[string]any:
			for _, sub := range sortedKeys(v) {
				out, _ = sjson.Set(out, escapeSpecKey(key+"_"+sub), truncateSpec(fmt.Sprint(v[sub])))
			}
		case nil:
			// dropped
		default:
			out, _ = sjson.Set(out, escapeSpecKey(key), truncateSpec(fmt.Sprint(v)))
		}
	}
	return out
}

// escapeSpecKey keeps literal dots in specification keys from being read
// as sjson path separators.
func escapeSpecKey(key string) string {
	return strings.ReplaceAll(key, ".", `\.`)
}

func truncateSpec(v string) string {
	if len(v) > specValueMaxLen {
		return v[:specValueMaxLen]
	}
	return v
}

func (l *ProductLoader) CreateIndexes(ctx context.Context) error {
	stmts := []string{
		`CREATE INDEX product_gin_index IF NOT EXISTS FOR (p:Product) ON (p.gin)`,
		`CREATE INDEX product_category_index IF NOT EXISTS FOR (p:Product) ON (p.category)`,
		`CREATE INDEX product_name_index IF NOT EXISTS FOR (p:Product) ON (p.name)`,
		`CREATE INDEX product_available_index IF NOT EXISTS FOR (p:Product) ON (p.is_available)`,
		`CREATE VECTOR INDEX product_embeddings IF NOT EXISTS
			FOR (p:Product) ON (p.embedding)
			OPTIONS {indexConfig: {` + "`vector.dimensions`" + `: 384, ` + "`vector.similarity_function`" + `: 'cosine'}}`,
	}
	for _, stmt := range stmts {
		if err := l.store.ExecuteWrite(ctx, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

// EnsureEmbeddings generates embeddings for products missing them
// (spec.md §3 Lifecycle: "embeddings are generated lazily"). Generation
// fans out across a bounded worker group; a single product's failure is
// logged and skipped.
func (l *ProductLoader) EnsureEmbeddings(ctx context.Context, concurrency int) (int, error) {
	if l.embedder == nil {
		return 0, nil
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	rows, err := l.store.ExecuteQuery(ctx, `
		MATCH (p:Product) WHERE p.embedding IS NULL
		RETURN p.gin AS gin, p.name AS name, p.category AS category,
		       p.description AS description, p.specifications AS specifications`, nil)
	if err != nil {
		return 0, err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	var embedded atomic.Int64

	for _, row := range rows {
		g.Go(func() error {
			p := productFromRow(row)
			vec, text, embErr := l.embedder.EmbedProduct(ctx, p)
			if embErr != nil {
				l.log.WithError(embErr).WithField("gin", p.GIN).Warn("embedding generation failed, skipping product")
				return nil
			}
			writeErr := l.store.ExecuteWrite(ctx, `
				MATCH (p:Product {gin: $gin})
				SET p.embedding = $embedding, p.embedding_text = $text, p.updated_at = datetime()`,
				map[string]any{"gin": p.GIN, "embedding": vec, "text": text})
			if writeErr != nil {
				return writeErr
			}
			embedded.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(embedded.Load()), err
	}
	return int(embedded.Load()), nil
}

func productFromRow(row map[string]any) domain.Product {
	p := domain.Product{}
	if v, ok := row["gin"].(string); ok {
		p.GIN = v
	}
	if v, ok := row["name"].(string); ok {
		p.Name = v
	}
	if v, ok := row["category"].(string); ok {
		p.Category = domain.ParseCategory(v)
	}
	if v, ok := row["description"].(string); ok {
		p.Description = v
	}
	if v, ok := row["specifications"].(string); ok && v != "" {
		specs := map[string]string{}
		gjson.Parse(v).ForEach(func(key, value gjson.Result) bool {
			specs[key.String()] = value.String()
			return true
		})
		p.Specifications = specs
	}
	return p
}
