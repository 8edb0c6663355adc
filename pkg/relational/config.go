package relational

import (
	"fmt"

	"github.com/weldtech/sparky/internal/config"
	"github.com/weldtech/sparky/internal/errors"
)

// validate enforces the same fatal-at-startup posture as the graph store
// config (spec.md §6: the relational store is an external collaborator, not
// part of the core pipeline, but a misconfigured DSN must fail loudly at
// boot rather than surface as a confusing runtime timeout).
func validate(cfg config.RelationalStoreConfig) error {
	if cfg.Host == "" {
		return errors.ConfigurationError("relational.host", "database host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return errors.ConfigurationError("relational.port", "database port must be between 1 and 65535")
	}
	if cfg.User == "" {
		return errors.ConfigurationError("relational.user", "database user is required")
	}
	if cfg.Database == "" {
		return errors.ConfigurationError("relational.database", "database name is required")
	}
	if cfg.MaxConnections <= 0 {
		return errors.ConfigurationError("relational.max_connections", "max connections must be greater than 0")
	}
	return nil
}

// connectionString builds a libpq-style DSN, omitting the password field
// entirely when empty so it never shows up as "password=" in logs.
func connectionString(cfg config.RelationalStoreConfig) string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Database)
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	return dsn
}
