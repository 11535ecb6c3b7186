package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/partdesk/catalog-enrichment/internal/adapters/ai"
	"github.com/partdesk/catalog-enrichment/internal/adapters/storage"
	"github.com/partdesk/catalog-enrichment/internal/application/services"
	"github.com/partdesk/catalog-enrichment/internal/domain/entities"
	"github.com/partdesk/catalog-enrichment/internal/domain/providers"
	"github.com/partdesk/catalog-enrichment/internal/infrastructure/clients/anthropic"
	"github.com/partdesk/catalog-enrichment/internal/infrastructure/clients/openai"
	"github.com/partdesk/catalog-enrichment/internal/infrastructure/observability"
	"github.com/partdesk/catalog-enrichment/pkg/config"
	"github.com/partdesk/catalog-enrichment/pkg/hashing"
)

func main() {
	var itemJSON string
	var filePath string
	var partialStages string
	var dryRun bool
	var stats bool
	flag.StringVar(&itemJSON, "item", "", "single record as a JSON object")
	flag.StringVar(&filePath, "file", "", "path to an NDJSON file of records")
	flag.StringVar(&partialStages, "partial", "", "comma-separated stage names to re-run for the given item")
	flag.BoolVar(&dryRun, "dry-run", false, "compute without persisting")
	flag.BoolVar(&stats, "stats", false, "print recent enrichment log entries and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if dryRun {
		cfg.Engine.DryRun = true
	}

	observability.InitLogger("catalog-enrichment", cfg.Engine.Environment)
	observability.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, itemJSON, filePath, partialStages, stats); err != nil {
		log.Fatal().Err(err).Msg("enrichment run failed")
	}
}

func run(ctx context.Context, cfg *config.Config, itemJSON, filePath, partialStages string, stats bool) error {
	if filePath != "" && partialStages != "" {
		return fmt.Errorf("-partial applies to a single -item record, not a batch file")
	}

	store, err := storage.Init(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if stats {
		return printStats(ctx, store)
	}

	gateway := buildGateway(cfg)
	defer func() {
		if err := gateway.SaveSnapshot(); err != nil {
			log.Debug().Err(err).Msg("cache snapshot not saved")
		}
	}()

	expander, err := services.NewTermExpansionService(cfg.Batch.SynonymsPath)
	if err != nil {
		return fmt.Errorf("failed to load synonym config: %w", err)
	}

	enricher := services.NewEnrichmentService(
		gateway,
		store,
		expander,
		services.NewRulesService(),
		cfg.Engine,
		cfg.Stages,
	)

	switch {
	case itemJSON != "" && partialStages != "":
		return runPartial(ctx, store, enricher, itemJSON, partialStages)
	case itemJSON != "":
		return runSingle(ctx, enricher, itemJSON)
	case filePath != "":
		return runBatch(ctx, cfg, enricher, filePath)
	default:
		return fmt.Errorf("nothing to do: pass -item, -file or -stats")
	}
}

func buildGateway(cfg *config.Config) *ai.Gateway {
	var completions []providers.CompletionProvider

	if client, err := openai.NewClient(&cfg.AI); err == nil {
		completions = append(completions, client)
	} else if cfg.AI.OpenAIKey != "" {
		log.Warn().Err(err).Msg("openai provider not configured")
	}

	if client, err := anthropic.NewClient(&cfg.AI); err == nil {
		completions = append(completions, client)
	} else if cfg.AI.AnthropicKey != "" {
		log.Warn().Err(err).Msg("anthropic provider not configured")
	}

	opts := []ai.Option{}
	if cfg.AI.SnapshotPath != "" {
		opts = append(opts, ai.WithSnapshotStore(ai.NewFileSnapshotStore(cfg.AI.SnapshotPath)))
	}

	return ai.NewGateway(&cfg.AI, cfg.Engine.Version, completions, opts...)
}

func decodeRecord(data []byte) (*entities.SourceRecord, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return entities.NormalizeRecord(raw), nil
}

func runSingle(ctx context.Context, enricher *services.EnrichmentService, itemJSON string) error {
	record, err := decodeRecord([]byte(itemJSON))
	if err != nil {
		return fmt.Errorf("invalid record json: %w", err)
	}

	outcome := enricher.Enrich(ctx, record)
	return printJSON(outcome.Result)
}

func runPartial(ctx context.Context, store *storage.Adapter, enricher *services.EnrichmentService, itemJSON, partialStages string) error {
	record, err := decodeRecord([]byte(itemJSON))
	if err != nil {
		return fmt.Errorf("invalid record json: %w", err)
	}

	hash := hashing.ContentHash(record.PartNumber, record.Name, record.Manufacturer, record.Description)
	var existing *entities.EnrichmentResult
	if item := store.GetByHash(ctx, hash); item != nil && item.Enriched != nil {
		existing = item.Enriched
	} else {
		// Nothing stored yet; a partial request degrades to a full run.
		existing = enricher.Enrich(ctx, record).Result
	}

	stageNames := strings.Split(partialStages, ",")
	for i := range stageNames {
		stageNames[i] = strings.TrimSpace(stageNames[i])
	}

	partial := enricher.ReEnrichPartial(ctx, record, existing, stageNames)
	return printJSON(partial.Result)
}

func runBatch(ctx context.Context, cfg *config.Config, enricher *services.EnrichmentService, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open batch file: %w", err)
	}
	defer file.Close()

	var records []*entities.SourceRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		record, err := decodeRecord([]byte(line))
		if err != nil {
			log.Warn().Int("line", lineNo).Err(err).Msg("skipping unparseable record")
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read batch file: %w", err)
	}

	batch := services.NewBatchService(enricher, cfg.Batch.MaxConcurrency, cfg.Batch.WebhookURL)
	summary := batch.Run(ctx, records)

	log.Info().
		Int("total", summary.Total).
		Int("enriched", summary.Enriched).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("batch complete")

	return printJSON(summary)
}

func printStats(ctx context.Context, store *storage.Adapter) error {
	entries, err := store.RecentLogs(ctx, 50)
	if err != nil {
		return err
	}
	return printJSON(entries)
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
