// Package relational adapts the external user/session collaborator store
// (spec.md §1, §6) behind a minimal interface the intent processor consumes.
// The core pipeline never writes here; it only reads a caller's prior
// context to seed UserContext.
package relational

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"

	"github.com/weldtech/sparky/internal/config"
	"github.com/weldtech/sparky/internal/errors"
	"github.com/weldtech/sparky/internal/resilience"
	"github.com/weldtech/sparky/pkg/intent"
)

// Store is the Postgres-backed UserContextStore adapter.
type Store struct {
	db      *sqlx.DB
	log     *logrus.Logger
	breaker *resilience.Breaker
}

// Connect opens and pings the relational store, applying the same
// connections-pool tuning the teacher's database package exposes via
// MaxOpenConns/MaxIdleConns.
func Connect(cfg config.RelationalStoreConfig, log *logrus.Logger) (*Store, error) {
	if err := validate(cfg); err != nil {
		return nil, errors.Wrapf(err, "invalid relational store configuration")
	}

	db, err := sqlx.Connect("pgx", connectionString(cfg))
	if err != nil {
		return nil, errors.DatabaseError("connect", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MinConnections)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{
		db:      db,
		log:     log,
		breaker: resilience.NewCircuitBreaker("relational-store", 0.5, 30*time.Second),
	}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// HealthCheck verifies the pool can still reach the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errors.DatabaseError("ping relational store", err)
	}
	return nil
}

type userContextRow struct {
	UserID            string         `db:"user_id"`
	PreferredLanguage sql.NullString `db:"preferred_language"`
	IndustryContext   sql.NullString `db:"industry_context"`
	Organization      sql.NullString `db:"organization"`
	Role              sql.NullString `db:"role"`
	ExpertiseHistory  sql.NullString `db:"expertise_history"`
}

type sessionRow struct {
	PreviousQueries sql.NullString `db:"previous_queries"`
}

// Load resolves a caller's stored profile and recent session history into
// the UserContext the intent processor consumes (spec.md §4.5 Inputs).
// A missing user or session degrades to a bare UserContext carrying only
// the IDs the caller supplied, never an error: per spec.md §7 the
// recommendation pipeline must still run for first-time callers.
func (s *Store) Load(ctx context.Context, userID, sessionID string) (intent.UserContext, error) {
	uc := intent.UserContext{UserID: userID, SessionID: sessionID}

	err := s.breaker.CallContext(ctx, func(ctx context.Context) error {
		var row userContextRow
		qErr := s.db.GetContext(ctx, &row, `
			SELECT user_id, preferred_language, industry_context, organization, role, expertise_history
			FROM users WHERE user_id = $1`, userID)
		if qErr == sql.ErrNoRows {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uc.PreferredLanguage = row.PreferredLanguage.String
		uc.IndustryContext = row.IndustryContext.String
		uc.Organization = row.Organization.String
		uc.Role = row.Role.String
		if row.ExpertiseHistory.Valid {
			_ = json.Unmarshal([]byte(row.ExpertiseHistory.String), &uc.ExpertiseHistory)
		}

		var sess sessionRow
		sErr := s.db.GetContext(ctx, &sess, `
			SELECT previous_queries FROM sessions WHERE session_id = $1 AND user_id = $2`, sessionID, userID)
		if sErr == sql.ErrNoRows {
			return nil
		}
		if sErr != nil {
			return sErr
		}
		if sess.PreviousQueries.Valid {
			_ = json.Unmarshal([]byte(sess.PreviousQueries.String), &uc.PreviousQueries)
		}
		return nil
	})
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("relational store lookup failed, continuing with bare user context")
		return uc, nil
	}
	return uc, nil
}

// RecordQuery appends a query to a session's history, used by the session
// surface so the next Load call sees accumulated context (spec.md §4.5
// Inputs: previous_queries).
func (s *Store) RecordQuery(ctx context.Context, userID, sessionID, query string) error {
	return s.breaker.CallContext(ctx, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO sessions (session_id, user_id, previous_queries, updated_at)
			VALUES ($1, $2, jsonb_build_array($3::text), now())
			ON CONFLICT (session_id) DO UPDATE
			SET previous_queries = sessions.previous_queries || jsonb_build_array($3::text),
			    updated_at = now()`, sessionID, userID, query)
		return err
	})
}
