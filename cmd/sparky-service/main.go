// Command sparky-service is the serving binary: it assembles the full
// recommendation pipeline at startup (composition root, spec.md §9: no
// global singletons, every dependency passed into constructors) and runs
// the HTTP surface until shutdown. Exit codes: 0 on clean shutdown,
// non-zero on startup misconfiguration or unreachable required stores
// (spec.md §6).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/weldtech/sparky/internal/config"
	"github.com/weldtech/sparky/internal/logging"
	"github.com/weldtech/sparky/pkg/cache"
	"github.com/weldtech/sparky/pkg/compose"
	"github.com/weldtech/sparky/pkg/embedding"
	"github.com/weldtech/sparky/pkg/graphstore"
	"github.com/weldtech/sparky/pkg/httpapi"
	"github.com/weldtech/sparky/pkg/intent"
	"github.com/weldtech/sparky/pkg/llm"
	"github.com/weldtech/sparky/pkg/metrics"
	"github.com/weldtech/sparky/pkg/orchestrator"
	"github.com/weldtech/sparky/pkg/productsearch"
	"github.com/weldtech/sparky/pkg/recommend"
	"github.com/weldtech/sparky/pkg/relational"
	"github.com/weldtech/sparky/pkg/vocabulary"
)

func main() {
	configPath := flag.String("config", "configs/service.yaml", "path to the service configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "sparky-service: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := setupTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return err
	}
	defer shutdownTracing()

	// Static configuration: missing vocabulary is fatal at startup, never
	// at request time (spec.md §4.5 Errors).
	vocab, err := vocabulary.Load(cfg.VocabularyPath)
	if err != nil {
		return err
	}
	modeCfg, err := intent.LoadModeDetectionConfig(cfg.ModeDetectionPath)
	if err != nil {
		return err
	}

	// Process-wide stores, created once and closed at shutdown (spec.md §5).
	store, err := graphstore.NewStore(graphstore.Config{
		URI:               cfg.GraphStore.URI,
		Username:          cfg.GraphStore.Username,
		Password:          cfg.GraphStore.Password,
		Database:          cfg.GraphStore.Database,
		MaxPoolSize:       cfg.GraphStore.MaxPoolSize,
		ConnectionTimeout: cfg.GraphStore.ConnectionTimeout,
		VectorIndexName:   cfg.GraphStore.VectorIndexName,
	})
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	startupCtx, cancel := context.WithTimeout(ctx, cfg.GraphStore.ConnectionTimeout)
	defer cancel()
	if err := store.HealthCheck(startupCtx); err != nil {
		return fmt.Errorf("graph store unreachable at startup: %w", err)
	}

	users, err := relational.Connect(cfg.Relational, log)
	if err != nil {
		return err
	}
	defer users.Close()
	if err := users.Migrate(); err != nil {
		return fmt.Errorf("relational migrations failed: %w", err)
	}

	var redisCache *cache.Cache
	if cfg.Redis.Enabled {
		redisCache, err = cache.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			return fmt.Errorf("redis unreachable at startup: %w", err)
		}
		defer redisCache.Close()
	}

	llmClient, err := buildLLMClient(cfg.LLM)
	if err != nil {
		return err
	}

	embedder := cache.WrapEmbedding(
		embedding.NewService(cfg.Embedding.Endpoint, cfg.Embedding.Timeout, vocab),
		redisCache)

	processor := cache.NewProcessor(
		intent.NewProcessor(vocab, modeCfg, llmClient, log),
		cache.WrapIntent(redisCache))

	collaborators := recommend.Collaborators{
		Store:    store,
		Embedder: embedder,
		Search:   productsearch.NewEngine(store),
	}
	engine := recommend.NewEngine(collaborators, modeCfg, cfg.Recommend, store)
	composer := compose.NewComposer(cfg.Recommend.PreferredManufacturers)
	orch := orchestrator.New(processor, engine, composer, cfg.Recommend.StageTimeout, log)

	metricsServer := metrics.NewServer(cfg.Server.MetricsPort, log)
	metricsServer.StartAsync()
	defer metricsServer.Stop(context.Background())

	api := httpapi.New(httpapi.Config{Port: cfg.Server.Port}, orch, users, store, users, log)

	errCh := make(chan error, 1)
	go func() { errCh <- api.Start() }()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, draining")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer drainCancel()
	return api.Shutdown(drainCtx)
}

// buildLLMClient selects the provider: Anthropic is primary; "localai"
// and "langchain" route through the OpenAI-compatible fallback.
func buildLLMClient(cfg config.LLMConfig) (llm.Client, error) {
	switch cfg.Provider {
	case "anthropic":
		return llm.NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.Timeout), nil
	default:
		return llm.NewLangchainClient(cfg.Endpoint, cfg.APIKey, cfg.Model, cfg.Timeout)
	}
}

// setupTracing installs the OTLP trace exporter when tracing is enabled;
// otherwise the default no-op tracer provider stays in place.
func setupTracing(ctx context.Context, cfg config.TracingConfig, log *logrus.Logger) (func(), error) {
	if !cfg.Enabled {
		return func() {}, nil
	}

	opts := []otlptracehttp.Option{}
	if cfg.APIKey != "" {
		opts = append(opts, otlptracehttp.WithHeaders(map[string]string{"x-api-key": cfg.APIKey}))
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := sdkresource.New(ctx,
		sdkresource.WithAttributes(
			attribute.String("service.name", "sparky"),
			attribute.String("service.namespace", cfg.ProjectName),
		))
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("trace provider shutdown failed")
		}
	}, nil
}
