package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"insightsearch/features/crawl"
	"insightsearch/internal/adapter/brave"
	"insightsearch/internal/adapter/firecrawl"
	"insightsearch/internal/adapter/gemini"
	"insightsearch/internal/classify"
	"insightsearch/internal/config"
	"insightsearch/internal/extract"
	"insightsearch/internal/sink"
	"insightsearch/internal/text"
)

// App holds the wired crawl dependencies for one process lifetime.
type App struct {
	Gateway    *extract.Gateway
	Classifier *classify.Classifier
	Search     *brave.Client
	Records    *crawl.PostgresRepo
	Optimizer  *gemini.Optimizer
	Snapshots  *sink.Snapshot

	cfg     *config.Config
	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, db *sql.DB) (*App, error) {
	scraper := firecrawl.NewClient(cfg.FirecrawlAPIKey)
	if cfg.FirecrawlBaseURL != "" {
		scraper.SetBaseURL(cfg.FirecrawlBaseURL)
	}
	gateway := extract.NewGateway(scraper, time.Duration(cfg.ExtractTimeoutSeconds)*time.Second)

	tokenizer, err := text.NewTiktokenTokenizer()
	if err != nil {
		return nil, fmt.Errorf("tokenizer init error: %w", err)
	}
	chunker := text.NewChunker(tokenizer, cfg.ChunkMaxTokens, cfg.ChunkOverlapTokens)

	chunkModel, err := gemini.NewClassifier(ctx, cfg.GeminiAPIKey, cfg.ClassifierModel)
	if err != nil {
		return nil, fmt.Errorf("classifier init error: %w", err)
	}
	classifier := classify.NewClassifier(chunkModel, chunker)

	optimizer, err := gemini.NewOptimizer(ctx, cfg.GeminiAPIKey, cfg.OptimizerModel)
	if err != nil {
		chunkModel.Close()
		return nil, fmt.Errorf("optimizer init error: %w", err)
	}

	search := brave.NewClient(cfg.BraveAPIKey)
	if cfg.BraveBaseURL != "" {
		search.SetBaseURL(cfg.BraveBaseURL)
	}

	snapshots, err := sink.NewSnapshot(cfg.OutputDir)
	if err != nil {
		chunkModel.Close()
		optimizer.Close()
		return nil, err
	}

	return &App{
		Gateway:    gateway,
		Classifier: classifier,
		Search:     search,
		Records:    crawl.NewPostgresRepo(db, ""),
		Optimizer:  optimizer,
		Snapshots:  snapshots,
		cfg:        cfg,
		closers:    []func() error{chunkModel.Close, optimizer.Close},
	}, nil
}

// NewCrawlService creates the spreadsheet for this run and assembles a
// crawl service around it.
func (a *App) NewCrawlService(query, filenameKey string) (*crawl.Service, *sink.Spreadsheet, error) {
	sheet, err := sink.CreateSpreadsheet(a.cfg.OutputDir, query, filenameKey)
	if err != nil {
		return nil, nil, fmt.Errorf("spreadsheet init error: %w", err)
	}

	cooldown := time.Duration(a.cfg.CooldownSeconds) * time.Second
	frontier := crawl.NewFrontier(a.Gateway, a.Classifier, a.Records, sheet, a.Snapshots,
		crawl.WithCooldown(cooldown),
		crawl.WithBatchPause(a.cfg.BatchPauseEvery))
	svc := crawl.NewService(a.Search, frontier, a.Snapshots,
		crawl.WithLevelCooldown(cooldown))
	return svc, sheet, nil
}

func (a *App) Close() error {
	var firstErr error
	for _, closer := range a.closers {
		if err := closer(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
