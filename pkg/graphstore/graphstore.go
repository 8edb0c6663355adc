// Package graphstore implements C3: a Neo4j-backed adapter over the
// product graph, exposing the read operations the recommendation core
// needs plus the transactional batch-write path the loader uses. It never
// builds Cypher by string-concatenating user input (spec.md §4.3).
package graphstore

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/weldtech/sparky/internal/errors"
	"github.com/weldtech/sparky/internal/resilience"
	"github.com/weldtech/sparky/pkg/domain"
)

// Store is the full set of graph operations the core and the loader
// require.
type Store interface {
	ExecuteQuery(ctx context.Context, stmt string, params map[string]any) ([]map[string]any, error)
	ExecuteWrite(ctx context.Context, stmt string, params map[string]any) error
	ExecuteBatchWrite(ctx context.Context, statements []Statement) error

	ShortlistByFirstToken(ctx context.Context, category domain.Category, firstToken string, limit int) ([]domain.Product, error)
	VectorSearch(ctx context.Context, indexName string, k int, vector []float32, categoryFilter domain.Category, minScore float64) ([]domain.ScoredProduct, error)
	HybridSearch(ctx context.Context, vector []float32, k int, categoryFilter domain.Category, vectorWeight, salesWeight float64) ([]domain.ScoredProduct, error)
	ShortestPath(ctx context.Context, startGIN string, targetCategory domain.Category, maxHops int) ([]domain.ScoredProduct, error)
	PagerankPopular(ctx context.Context, category domain.Category, minSales int) ([]domain.ScoredProduct, error)
	Centrality(ctx context.Context, category domain.Category, minConnections int) ([]domain.ScoredProduct, error)
	PropertySearch(ctx context.Context, category domain.Category, terms []string) ([]domain.ScoredProduct, error)
	CompatibleComponents(ctx context.Context, sourceGIN string, category domain.Category) ([]domain.ScoredProduct, error)
	CoOrderedProducts(ctx context.Context, trinityGINs []string, limit int) ([]domain.ScoredProduct, error)
	ProductsByGINs(ctx context.Context, gins []string) ([]domain.Product, error)
	GoldenPackageFor(ctx context.Context, powerSourceGIN string) (domain.GoldenPackage, bool, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// Statement pairs a Cypher statement with its parameters for batch writes.
type Statement struct {
	Cypher string
	Params map[string]any
}

type neo4jStore struct {
	driver          neo4j.DriverWithContext
	database        string
	vectorIndexName string
	breaker         *resilience.Breaker
	retryAttempts   int
}

// Config configures the graph store adapter.
type Config struct {
	URI               string
	Username          string
	Password          string
	Database          string
	MaxPoolSize       int
	ConnectionTimeout time.Duration
	VectorIndexName   string
}

// NewStore creates the Neo4j driver-backed store and owns its bounded
// connection pool for the process lifetime (spec.md §5: "process-wide
// singleton created at startup and closed at shutdown").
func NewStore(cfg Config) (Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = cfg.MaxPoolSize
			c.ConnectionAcquisitionTimeout = cfg.ConnectionTimeout
		})
	if err != nil {
		return nil, errors.DatabaseError("connect to graph store", err)
	}

	return &neo4jStore{
		driver:          driver,
		database:        cfg.Database,
		vectorIndexName: cfg.VectorIndexName,
		breaker:         resilience.NewCircuitBreaker("graphstore", 0.5, 30*time.Second),
		retryAttempts:   3,
	}, nil
}

func (s *neo4jStore) ExecuteQuery(ctx context.Context, stmt string, params map[string]any) ([]map[string]any, error) {
	var rows []map[string]any
	err := resilience.RetryWithBackoff(ctx, s.retryAttempts, 100*time.Millisecond, errors.IsRetryable, func() error {
		result, err := neo4j.ExecuteQuery(ctx, s.driver, stmt, params,
			neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(s.database))
		if err != nil {
			return errors.DatabaseError("execute_query", err)
		}
		rows = make([]map[string]any, 0, len(result.Records))
		for _, rec := range result.Records {
			rows = append(rows, rec.AsMap())
		}
		return nil
	})
	return rows, err
}

func (s *neo4jStore) ExecuteWrite(ctx context.Context, stmt string, params map[string]any) error {
	return resilience.RetryWithBackoff(ctx, s.retryAttempts, 100*time.Millisecond, errors.IsRetryable, func() error {
		_, err := neo4j.ExecuteQuery(ctx, s.driver, stmt, params,
			neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(s.database))
		if err != nil {
			return errors.DatabaseError("execute_write", err)
		}
		return nil
	})
}

// ExecuteBatchWrite runs all statements inside a single transaction,
// retrying the whole batch on transient errors (spec.md §4.3).
func (s *neo4jStore) ExecuteBatchWrite(ctx context.Context, statements []Statement) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database, AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	return resilience.RetryWithBackoff(ctx, s.retryAttempts, 200*time.Millisecond, errors.IsRetryable, func() error {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			for _, st := range statements {
				if _, err := tx.Run(ctx, st.Cypher, st.Params); err != nil {
					return nil, err
				}
			}
			return nil, nil
		})
		if err != nil {
			return errors.DatabaseError("execute_batch_write", err)
		}
		return nil
	})
}

func (s *neo4jStore) HealthCheck(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return errors.DatabaseError("verify_connectivity", err)
	}

	rows, err := s.ExecuteQuery(ctx, `SHOW INDEXES YIELD name WHERE name = $name RETURN name`,
		map[string]any{"name": s.vectorIndexName})
	if err != nil {
		return errors.DatabaseError("verify_vector_index", err)
	}
	if len(rows) == 0 {
		return errors.DatabaseError("verify_vector_index", fmt.Errorf("index %s not found", s.vectorIndexName))
	}
	return nil
}

func (s *neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}
