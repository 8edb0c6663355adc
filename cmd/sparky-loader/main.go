// Command sparky-loader builds and maintains the product graph from the
// three JSON feeds (spec.md §6): products first, then compatibility
// rules, then sales history (which derives co-occurrence and Trinity
// structure from the first two). It is the only writer of the graph; the
// serving binary is read-only (spec.md §5).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/weldtech/sparky/internal/config"
	"github.com/weldtech/sparky/internal/logging"
	"github.com/weldtech/sparky/pkg/embedding"
	"github.com/weldtech/sparky/pkg/graphstore"
	"github.com/weldtech/sparky/pkg/loader"
	"github.com/weldtech/sparky/pkg/vocabulary"
)

func main() {
	configPath := flag.String("config", "configs/service.yaml", "path to the service configuration file")
	productsPath := flag.String("products", "data/enhanced_simplified_products.json", "products feed")
	rulesPath := flag.String("rules", "data/compatibility_rules.json", "compatibility rules feed")
	salesPath := flag.String("sales", "data/sales_data.json", "sales records feed")
	validateOnly := flag.Bool("validate-only", false, "validate the feeds without writing")
	skipEmbeddings := flag.Bool("skip-embeddings", false, "skip lazy embedding generation")
	flag.Parse()

	if err := run(*configPath, *productsPath, *rulesPath, *salesPath, *validateOnly, *skipEmbeddings); err != nil {
		fmt.Fprintf(os.Stderr, "sparky-loader: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, productsPath, rulesPath, salesPath string, validateOnly, skipEmbeddings bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	ctx := context.Background()

	vocab, err := vocabulary.Load(cfg.VocabularyPath)
	if err != nil {
		return err
	}

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

	embedder := embedding.NewService(cfg.Embedding.Endpoint, cfg.Embedding.Timeout, vocab)

	products := loader.NewProductLoader(store, embedder, log)
	rules := loader.NewCompatibilityLoader(store, log)
	sales := loader.NewSalesLoader(store, log)

	var report loader.Report
	if validateOnly {
		if report.Products, err = products.Validate(ctx, productsPath); err != nil {
			return err
		}
		if report.Compatibility, err = rules.Validate(ctx, rulesPath); err != nil {
			return err
		}
		if report.Sales, err = sales.Validate(ctx, salesPath); err != nil {
			return err
		}
		printReport(log, report)
		return nil
	}

	if err := products.CreateIndexes(ctx); err != nil {
		return err
	}
	if report.Products, err = products.Process(ctx, productsPath); err != nil {
		return err
	}
	if !skipEmbeddings {
		embedded, embErr := products.EnsureEmbeddings(ctx, 4)
		if embErr != nil {
			return embErr
		}
		log.WithField("embedded", embedded).Info("embedding backfill finished")
	}

	if err := rules.CreateIndexes(ctx); err != nil {
		return err
	}
	if report.Compatibility, err = rules.Process(ctx, rulesPath); err != nil {
		return err
	}

	if err := sales.CreateIndexes(ctx); err != nil {
		return err
	}
	if report.Sales, err = sales.Process(ctx, salesPath); err != nil {
		return err
	}

	printReport(log, report)
	return nil
}

func printReport(log *logrus.Logger, report loader.Report) {
	for name, result := range map[string]loader.ValidationResult{
		"products":      report.Products,
		"compatibility": report.Compatibility,
		"sales":         report.Sales,
	} {
		log.WithFields(logrus.Fields{
			"feed":               name,
			"total":              result.TotalRecords,
			"valid":              result.ValidRecords,
			"invalid":            result.InvalidRecords,
			"success_rate":       fmt.Sprintf("%.1f%%", result.SuccessRate()),
			"missing_references": len(result.MissingReferences),
			"duplicates":         len(result.DuplicateKeys),
		}).Info("load report")
		for _, w := range result.Warnings {
			log.WithField("feed", name).Warn(w)
		}
	}
	if n := report.TotalMissingReferences(); n > 0 {
		log.WithField("missing_references", n).Warn("some records referenced unknown products and were skipped")
	}
}
