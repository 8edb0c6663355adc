package loader

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/weldtech/sparky/pkg/domain"
	"github.com/weldtech/sparky/pkg/graphstore"
)

// compatibilityFile mirrors compatibility_rules.json (spec.md §6).
type compatibilityFile struct {
	CompatibilityRules []compatibilityRule `json:"compatibility_rules"`
}

type compatibilityRule struct {
	RuleID         string         `json:"rule_id"`
	RuleType       string         `json:"rule_type"`
	SourceGIN      string         `json:"source_gin"`
	TargetGIN      string         `json:"target_gin"`
	SourceCategory string         `json:"source_category"`
	TargetCategory string         `json:"target_category"`
	Confidence     float64        `json:"confidence"`
	Bidirectional  bool           `json:"bidirectional"`
	Metadata       map[string]any `json:"metadata"`
}

// CompatibilityLoader loads COMPATIBLE_WITH and DETERMINES relationships.
// The edge set is rebuilt from scratch on every run (delete-then-create,
// spec.md §3 Lifecycle), which is what makes re-loading idempotent.
type CompatibilityLoader struct {
	store     graphstore.Store
	log       *logrus.Logger
	batchSize int
}

func NewCompatibilityLoader(store graphstore.Store, log *logrus.Logger) *CompatibilityLoader {
	return &CompatibilityLoader{store: store, log: log, batchSize: 500}
}

func (l *CompatibilityLoader) Validate(ctx context.Context, path string) (ValidationResult, error) {
	catalog, err := productCatalog(ctx, l.store)
	if err != nil {
		return ValidationResult{}, err
	}
	_, result, err := l.validateFile(path, catalog)
	return result, err
}

func (l *CompatibilityLoader) validateFile(path string, catalog map[string]bool) ([]compatibilityRule, ValidationResult, error) {
	var file compatibilityFile
	if err := readJSONFile(path, &file); err != nil {
		return nil, ValidationResult{}, err
	}

	result := ValidationResult{TotalRecords: len(file.CompatibilityRules)}
	valid := make([]compatibilityRule, 0, len(file.CompatibilityRules))
	missing := map[string]bool{}

	for i, rule := range file.CompatibilityRules {
		id := rule.RuleID
		if id == "" {
			id = fmt.Sprintf("#%d", i)
		}
		if rule.SourceGIN == "" || rule.TargetGIN == "" {
			result.addError(id, "missing source_gin or target_gin")
			continue
		}
		switch domain.EdgeType(rule.RuleType) {
		case domain.EdgeCompatibleWith, domain.EdgeDetermines, domain.EdgeRequires:
		case domain.EdgeExcludes:
			// EXCLUDES rules carry no edge the serving queries consume.
			result.addWarning(id, "EXCLUDES rule not materialized as an edge")
			result.ValidRecords++
			continue
		default:
			result.addError(id, "unknown rule_type "+rule.RuleType)
			continue
		}

		// Orphan references are skipped and reported, never fatal
		// (spec.md §3 invariant, §7).
		if !catalog[rule.SourceGIN] {
			missing[rule.SourceGIN] = true
			result.addWarning(id, "source product not in catalog, rule skipped")
			result.InvalidRecords++
			continue
		}
		if !catalog[rule.TargetGIN] {
			missing[rule.TargetGIN] = true
			result.addWarning(id, "target product not in catalog, rule skipped")
			result.InvalidRecords++
			continue
		}

		rule.Confidence = domain.ClampConfidence(rule.Confidence)
		valid = append(valid, rule)
		result.ValidRecords++
	}

	result.MissingReferences = sortedKeys(missing)
	return valid, result, nil
}

func (l *CompatibilityLoader) Process(ctx context.Context, path string) (ValidationResult, error) {
	catalog, err := productCatalog(ctx, l.store)
	if err != nil {
		return ValidationResult{}, err
	}
	rules, result, err := l.validateFile(path, catalog)
	if err != nil {
		return result, err
	}

	// Delete-then-create: the previous rule set is dropped wholesale so a
	// re-run converges on exactly the rules in the file.
	if err := l.store.ExecuteWrite(ctx, `MATCH ()-[r:COMPATIBLE_WITH]->() DELETE r`, nil); err != nil {
		return result, err
	}
	if err := l.store.ExecuteWrite(ctx, `MATCH ()-[r:DETERMINES]->() DELETE r`, nil); err != nil {
		return result, err
	}

	var compatible, determines []map[string]any
	for _, rule := range rules {
		param := map[string]any{
			"rule_id":       rule.RuleID,
			"source_gin":    rule.SourceGIN,
			"target_gin":    rule.TargetGIN,
			"confidence":    rule.Confidence,
			"metadata_json": flattenSpecifications(rule.Metadata),
			"bidirectional": rule.Bidirectional,
		}
		switch domain.EdgeType(rule.RuleType) {
		case domain.EdgeCompatibleWith:
			compatible = append(compatible, param)
		default:
			// DETERMINES and the stricter REQUIRES both materialize as the
			// hard-filter DETERMINES edge the engine consumes.
			determines = append(determines, param)
		}
	}

	var stmts []graphstore.Statement
	if len(compatible) > 0 {
		stmts = append(stmts, graphstore.Statement{
			Cypher: `
				UNWIND $rules AS rule
				MATCH (source:Product {gin: rule.source_gin})
				MATCH (target:Product {gin: rule.target_gin})
				CREATE (source)-[:COMPATIBLE_WITH {
					rule_id: rule.rule_id, confidence: rule.confidence,
					metadata_json: rule.metadata_json, created_at: datetime()
				}]->(target)
				WITH source, target, rule
				WHERE rule.bidirectional
				CREATE (target)-[:COMPATIBLE_WITH {
					rule_id: rule.rule_id, confidence: rule.confidence,
					metadata_json: rule.metadata_json, created_at: datetime()
				}]->(source)`,
			Params: map[string]any{"rules": compatible},
		})
	}
	if len(determines) > 0 {
		stmts = append(stmts, graphstore.Statement{
			Cypher: `
				UNWIND $rules AS rule
				MATCH (source:Product {gin: rule.source_gin})
				MATCH (target:Product {gin: rule.target_gin})
				CREATE (source)-[:DETERMINES {
					rule_id: rule.rule_id, confidence: rule.confidence,
					metadata_json: rule.metadata_json, created_at: datetime()
				}]->(target)`,
			Params: map[string]any{"rules": determines},
		})
	}
	if err := batchStatements(ctx, l.store, stmts, l.batchSize, l.log); err != nil {
		return result, err
	}

	l.log.WithFields(logrus.Fields{
		"compatible_with":    len(compatible),
		"determines":         len(determines),
		"missing_references": len(result.MissingReferences),
	}).Info("compatibility load finished")
	return result, nil
}

func (l *CompatibilityLoader) CreateIndexes(ctx context.Context) error {
	stmts := []string{
		`CREATE INDEX compatible_rule_id_index IF NOT EXISTS FOR ()-[r:COMPATIBLE_WITH]-() ON (r.rule_id)`,
		`CREATE INDEX determines_rule_id_index IF NOT EXISTS FOR ()-[r:DETERMINES]-() ON (r.rule_id)`,
		`CREATE INDEX compatible_confidence_index IF NOT EXISTS FOR ()-[r:COMPATIBLE_WITH]-() ON (r.confidence)`,
	}
	for _, stmt := range stmts {
		if err := l.store.ExecuteWrite(ctx, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}
