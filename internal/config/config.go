// Package config loads the process-wide configuration once at startup,
// combining a YAML file with environment-variable overrides, and validates
// the result before the composition root wires any dependency. A missing
// required setting is a ConfigError: fatal at startup, never at request
// time (spec.md §4.5, §7).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/weldtech/sparky/internal/errors"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port        string `yaml:"port"`
	MetricsPort string `yaml:"metrics_port"`
}

// GraphStoreConfig addresses the Neo4j-backed product graph (C3).
type GraphStoreConfig struct {
	URI               string        `yaml:"uri"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	Database          string        `yaml:"database"`
	MaxPoolSize       int           `yaml:"max_pool_size"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
	VectorIndexName   string        `yaml:"vector_index_name"`
	EmbeddingDim      int           `yaml:"embedding_dim"`
}

// RelationalStoreConfig addresses the auth/session collaborator store.
type RelationalStoreConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Database       string `yaml:"database"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	MaxConnections int    `yaml:"max_connections"`
	MinConnections int    `yaml:"min_connections"`
}

// RedisConfig addresses the embedding/intent cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// LLMConfig addresses the structured-extraction LLM provider (C5 step 5).
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Endpoint    string        `yaml:"endpoint"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float32       `yaml:"temperature"`
	RetryCount  int           `yaml:"retry_count"`
}

// EmbeddingConfig addresses the sentence-transformer embedding service (C2).
type EmbeddingConfig struct {
	ModelName string        `yaml:"model_name"`
	Endpoint  string        `yaml:"endpoint"`
	Timeout   time.Duration `yaml:"timeout"`
	Dimension int           `yaml:"dimension"`
}

// TracingConfig is optional observability export.
type TracingConfig struct {
	APIKey      string `yaml:"api_key"`
	ProjectName string `yaml:"project_name"`
	Enabled     bool   `yaml:"enabled"`
}

// AuthConfig carries the session-signing secrets the relational-store
// collaborator requires (spec.md §6).
type AuthConfig struct {
	SecretKey    string `yaml:"secret_key"`
	JWTSecretKey string `yaml:"jwt_secret_key"`
}

// LoggingConfig controls the process-wide logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RecommendConfig holds the configuration values §9's Open Questions say
// must be tunable rather than constants: the expert-mode multiplier and the
// golden-package backfill target.
type RecommendConfig struct {
	ExpertModeMultiplier   float64       `yaml:"expert_mode_multiplier"`
	GoldenBackfillTarget   int           `yaml:"golden_backfill_target"`
	StageTimeout           time.Duration `yaml:"stage_timeout"`
	PreferredManufacturers []string      `yaml:"preferred_manufacturers"`
}

// Config is the fully assembled, immutable process configuration.
type Config struct {
	Server     ServerConfig          `yaml:"server"`
	GraphStore GraphStoreConfig      `yaml:"graphstore"`
	Relational RelationalStoreConfig `yaml:"relational"`
	Redis      RedisConfig           `yaml:"redis"`
	LLM        LLMConfig             `yaml:"llm"`
	Embedding  EmbeddingConfig       `yaml:"embedding"`
	Tracing    TracingConfig         `yaml:"tracing"`
	Auth       AuthConfig            `yaml:"auth"`
	Logging    LoggingConfig         `yaml:"logging"`
	Recommend  RecommendConfig       `yaml:"recommend"`

	VocabularyPath     string `yaml:"vocabulary_path"`
	ModeDetectionPath  string `yaml:"mode_detection_path"`
}

// Load reads a YAML config file, applies environment overrides, fills
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(cfg)

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.MetricsPort == "" {
		cfg.Server.MetricsPort = "9090"
	}
	if cfg.GraphStore.MaxPoolSize == 0 {
		cfg.GraphStore.MaxPoolSize = 50
	}
	if cfg.GraphStore.ConnectionTimeout == 0 {
		cfg.GraphStore.ConnectionTimeout = 30 * time.Second
	}
	if cfg.GraphStore.VectorIndexName == "" {
		cfg.GraphStore.VectorIndexName = "product_embeddings"
	}
	if cfg.GraphStore.EmbeddingDim == 0 {
		cfg.GraphStore.EmbeddingDim = 384
	}
	if cfg.Relational.MaxConnections == 0 {
		cfg.Relational.MaxConnections = 20
	}
	if cfg.Relational.MinConnections == 0 {
		cfg.Relational.MinConnections = 5
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 30 * time.Second
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "anthropic"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "claude-3-5-haiku-20241022"
	}
	if cfg.LLM.RetryCount == 0 {
		cfg.LLM.RetryCount = 1
	}
	if cfg.Embedding.ModelName == "" {
		cfg.Embedding.ModelName = "all-MiniLM-L6-v2"
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 384
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 10 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Recommend.ExpertModeMultiplier == 0 {
		cfg.Recommend.ExpertModeMultiplier = 1.1
	}
	if cfg.Recommend.GoldenBackfillTarget == 0 {
		cfg.Recommend.GoldenBackfillTarget = 7
	}
	if cfg.Recommend.StageTimeout == 0 {
		cfg.Recommend.StageTimeout = 30 * time.Second
	}
	if len(cfg.Recommend.PreferredManufacturers) == 0 {
		cfg.Recommend.PreferredManufacturers = []string{"ESAB"}
	}
	if cfg.VocabularyPath == "" {
		cfg.VocabularyPath = "configs/welding_processes.yaml"
	}
	if cfg.ModeDetectionPath == "" {
		cfg.ModeDetectionPath = "configs/mode_detection.yaml"
	}
}

func loadFromEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v, ok := os.LookupEnv(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid int for %s: %w", key, err)
		}
		*dst = n
		return nil
	}
	setBool := func(key string, dst *bool) error {
		v, ok := os.LookupEnv(key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid bool for %s: %w", key, err)
		}
		*dst = b
		return nil
	}

	setString("GRAPHSTORE_URI", &cfg.GraphStore.URI)
	setString("GRAPHSTORE_USERNAME", &cfg.GraphStore.Username)
	setString("GRAPHSTORE_PASSWORD", &cfg.GraphStore.Password)
	setString("GRAPHSTORE_DATABASE", &cfg.GraphStore.Database)

	setString("RELATIONAL_HOST", &cfg.Relational.Host)
	if err := setInt("RELATIONAL_PORT", &cfg.Relational.Port); err != nil {
		return err
	}
	setString("RELATIONAL_DATABASE", &cfg.Relational.Database)
	setString("RELATIONAL_USER", &cfg.Relational.User)
	setString("RELATIONAL_PASSWORD", &cfg.Relational.Password)

	setString("REDIS_ADDR", &cfg.Redis.Addr)
	if err := setBool("REDIS_ENABLED", &cfg.Redis.Enabled); err != nil {
		return err
	}

	setString("LLM_API_KEY", &cfg.LLM.APIKey)
	setString("LLM_PROVIDER", &cfg.LLM.Provider)
	setString("LLM_MODEL", &cfg.LLM.Model)

	setString("EMBEDDING_MODEL_NAME", &cfg.Embedding.ModelName)
	setString("EMBEDDING_ENDPOINT", &cfg.Embedding.Endpoint)

	setString("TRACING_API_KEY", &cfg.Tracing.APIKey)
	setString("TRACING_PROJECT_NAME", &cfg.Tracing.ProjectName)

	setString("SECRET_KEY", &cfg.Auth.SecretKey)
	setString("JWT_SECRET_KEY", &cfg.Auth.JWTSecretKey)

	setString("LOG_LEVEL", &cfg.Logging.Level)
	setString("LOG_FORMAT", &cfg.Logging.Format)

	setString("SERVER_PORT", &cfg.Server.Port)
	setString("METRICS_PORT", &cfg.Server.MetricsPort)

	return nil
}

func validate(cfg *Config) error {
	if cfg.GraphStore.URI == "" {
		return errors.ConfigurationError("graphstore.uri", "value is required")
	}
	if cfg.GraphStore.Username == "" {
		return errors.ConfigurationError("graphstore.username", "value is required")
	}
	if cfg.GraphStore.Password == "" {
		return errors.ConfigurationError("graphstore.password", "value is required")
	}
	if cfg.GraphStore.Database == "" {
		return errors.ConfigurationError("graphstore.database", "value is required")
	}
	if cfg.Relational.Host == "" {
		return errors.ConfigurationError("relational.host", "value is required")
	}
	if cfg.Relational.Database == "" {
		return errors.ConfigurationError("relational.database", "value is required")
	}
	if cfg.Relational.User == "" {
		return errors.ConfigurationError("relational.user", "value is required")
	}
	if cfg.LLM.APIKey == "" {
		return errors.ConfigurationError("llm.api_key", "value is required")
	}
	if len(strings.TrimSpace(cfg.Auth.SecretKey)) < 32 {
		return errors.ConfigurationError("auth.secret_key", "must be at least 32 characters")
	}
	if len(strings.TrimSpace(cfg.Auth.JWTSecretKey)) < 32 {
		return errors.ConfigurationError("auth.jwt_secret_key", "must be at least 32 characters")
	}
	switch cfg.LLM.Provider {
	case "anthropic", "localai", "langchain":
	default:
		return errors.ConfigurationError("llm.provider", "unsupported LLM provider: "+cfg.LLM.Provider)
	}
	if cfg.Recommend.GoldenBackfillTarget <= 0 {
		return errors.ConfigurationError("recommend.golden_backfill_target", "must be greater than 0")
	}
	return nil
}
