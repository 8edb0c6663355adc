package relational

import (
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies every pending migration embedded in migrations/. The
// relational store is treated as an external collaborator the core only
// reads from (spec.md §1 non-goal boundary), but the service still owns
// its own schema so a fresh environment can stand one up without a
// separately maintained DBA script.
func (s *Store) Migrate() error {
	goose.SetBaseFS(migrationFiles)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(s.db.DB, "migrations")
}
