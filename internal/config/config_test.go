package config

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var (
		tempDir    string
		configFile string
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "sparky-config-test")
		Expect(err).NotTo(HaveOccurred())
		configFile = filepath.Join(tempDir, "config.yaml")
		os.Clearenv()
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
		os.Clearenv()
	})

	validSecret := "0123456789abcdef0123456789abcdef"

	writeConfig := func(body string) {
		Expect(os.WriteFile(configFile, []byte(body), 0644)).To(Succeed())
	}

	Describe("Load", func() {
		Context("when the config file has valid content", func() {
			BeforeEach(func() {
				writeConfig(`
graphstore:
  uri: "neo4j://localhost:7687"
  username: "neo4j"
  password: "test"
  database: "sparky"

relational:
  host: "localhost"
  port: 5432
  database: "sparky_sessions"
  user: "sparky"
  password: "test"

llm:
  api_key: "sk-test"
  provider: "anthropic"

auth:
  secret_key: "` + validSecret + `"
  jwt_secret_key: "` + validSecret + `"
`)
			})

			It("loads and fills in defaults", func() {
				cfg, err := Load(configFile)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.GraphStore.URI).To(Equal("neo4j://localhost:7687"))
				Expect(cfg.GraphStore.VectorIndexName).To(Equal("product_embeddings"))
				Expect(cfg.GraphStore.EmbeddingDim).To(Equal(384))
				Expect(cfg.Embedding.Dimension).To(Equal(384))
				Expect(cfg.Recommend.GoldenBackfillTarget).To(Equal(7))
				Expect(cfg.Recommend.ExpertModeMultiplier).To(Equal(1.1))
				Expect(cfg.LLM.Timeout).To(Equal(30 * time.Second))
				Expect(cfg.Server.Port).To(Equal("8080"))
			})
		})

		Context("when the config file does not exist", func() {
			It("returns an error", func() {
				_, err := Load(filepath.Join(tempDir, "missing.yaml"))
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to read config file"))
			})
		})

		Context("when the config file has invalid YAML", func() {
			BeforeEach(func() {
				writeConfig("graphstore: [this is not valid\n")
			})

			It("returns an error", func() {
				_, err := Load(configFile)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to parse config file"))
			})
		})

		Context("when required secrets are missing", func() {
			BeforeEach(func() {
				writeConfig(`
graphstore:
  uri: "neo4j://localhost:7687"
  username: "neo4j"
  password: "test"
  database: "sparky"
relational:
  host: "localhost"
  database: "sparky_sessions"
  user: "sparky"
llm:
  api_key: "sk-test"
`)
			})

			It("fails validation for short secrets", func() {
				_, err := Load(configFile)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("auth.secret_key"))
			})
		})
	})

	Describe("validate", func() {
		var cfg *Config

		BeforeEach(func() {
			cfg = &Config{
				GraphStore: GraphStoreConfig{URI: "neo4j://x", Username: "u", Password: "p", Database: "d"},
				Relational: RelationalStoreConfig{Host: "localhost", Database: "d", User: "u"},
				LLM:        LLMConfig{APIKey: "k", Provider: "anthropic"},
				Auth:       AuthConfig{SecretKey: validSecret, JWTSecretKey: validSecret},
				Recommend:  RecommendConfig{GoldenBackfillTarget: 7},
			}
		})

		It("passes for a fully-populated config", func() {
			Expect(validate(cfg)).To(Succeed())
		})

		It("rejects an unsupported LLM provider", func() {
			cfg.LLM.Provider = "bogus"
			err := validate(cfg)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("unsupported LLM provider"))
		})

		It("rejects a non-positive golden backfill target", func() {
			cfg.Recommend.GoldenBackfillTarget = 0
			err := validate(cfg)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("loadFromEnv", func() {
		It("overrides values from the environment", func() {
			os.Setenv("GRAPHSTORE_URI", "neo4j://from-env:7687")
			os.Setenv("LLM_API_KEY", "env-key")
			cfg := &Config{}
			Expect(loadFromEnv(cfg)).To(Succeed())
			Expect(cfg.GraphStore.URI).To(Equal("neo4j://from-env:7687"))
			Expect(cfg.LLM.APIKey).To(Equal("env-key"))
		})
	})
})
