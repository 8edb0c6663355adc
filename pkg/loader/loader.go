// Package loader builds the product graph the serving core reads: Product,
// Customer, Transaction, and Trinity nodes plus compatibility and
// co-occurrence relationships, from the three JSON feeds described in
// spec.md §6. Loading is idempotent: products are updated in place on
// re-runs, relationship sets are rebuilt delete-then-create, and invalid
// records are skipped and reported rather than aborting the load
// (spec.md §3 Lifecycle, §7 ValidationError).
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/weldtech/sparky/pkg/graphstore"
)

// ValidationResult reports one loader run's record-level outcome. Errors
// are data here, never control flow: a bad record lands in Errors and
// InvalidRecords and the load continues.
type ValidationResult struct {
	TotalRecords      int
	ValidRecords      int
	InvalidRecords    int
	Errors            []string
	Warnings          []string
	MissingReferences []string
	DuplicateKeys     []string
}

// SuccessRate is the share of records that loaded, in percent.
func (r ValidationResult) SuccessRate() float64 {
	if r.TotalRecords == 0 {
		return 0
	}
	return float64(r.ValidRecords) / float64(r.TotalRecords) * 100
}

func (r *ValidationResult) addError(recordID, msg string) {
	r.Errors = append(r.Errors, fmt.Sprintf("record %s: %s", recordID, msg))
	r.InvalidRecords++
}

func (r *ValidationResult) addWarning(recordID, msg string) {
	r.Warnings = append(r.Warnings, fmt.Sprintf("record %s: %s", recordID, msg))
}

// Loader is the common contract of the three concrete loaders
// (spec.md §9: a small interface plus three concrete implementations, no
// deep hierarchies).
type Loader interface {
	// Validate parses and checks the input file without writing anything.
	Validate(ctx context.Context, path string) (ValidationResult, error)
	// Process validates and then writes the valid records to the graph.
	Process(ctx context.Context, path string) (ValidationResult, error)
	// CreateIndexes ensures the indexes this loader's nodes/edges rely on.
	CreateIndexes(ctx context.Context) error
}

// Report aggregates a full load run across the three loaders.
type Report struct {
	Products      ValidationResult
	Compatibility ValidationResult
	Sales         ValidationResult
}

// TotalMissingReferences counts every missing-reference GIN across the run;
// these are reported, never fatal (spec.md §7).
func (r Report) TotalMissingReferences() int {
	return len(r.Products.MissingReferences) +
		len(r.Compatibility.MissingReferences) +
		len(r.Sales.MissingReferences)
}

func readJSONFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// productCatalog loads the set of known product GINs for reference
// validation across loaders.
func productCatalog(ctx context.Context, store graphstore.Store) (map[string]bool, error) {
	rows, err := store.ExecuteQuery(ctx, `MATCH (p:Product) RETURN p.gin AS gin`, nil)
	if err != nil {
		return nil, err
	}
	catalog := make(map[string]bool, len(rows))
	for _, row := range rows {
		if gin, ok := row["gin"].(string); ok {
			catalog[gin] = true
		}
	}
	return catalog, nil
}

// batchStatements splits statements into bounded transactions so a single
// huge load doesn't hold one transaction open for the whole file.
func batchStatements(ctx context.Context, store graphstore.Store, statements []graphstore.Statement, batchSize int, log *logrus.Logger) error {
	if batchSize <= 0 {
		batchSize = 500
	}
	for start := 0; start < len(statements); start += batchSize {
		end := start + batchSize
		if end > len(statements) {
			end = len(statements)
		}
		if err := store.ExecuteBatchWrite(ctx, statements[start:end]); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"written": end, "total": len(statements)}).Debug("batch committed")
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
