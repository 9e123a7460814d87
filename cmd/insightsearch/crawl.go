package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"insightsearch/features/crawl"
	"insightsearch/internal/app"
	"insightsearch/internal/config"
	"insightsearch/internal/logger"
	"insightsearch/internal/prompt"
	"insightsearch/internal/sink"
)

// NewCrawlCmd creates the interactive crawl command.
func NewCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run an interactive research crawl",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, closeLog, err := logger.NewFileLogger(cfg.LogPath)
	if err != nil {
		return fmt.Errorf("log file error: %w", err)
	}
	defer closeLog()
	slog.SetDefault(log)

	ctx = logger.WithRunID(ctx, uuid.NewString())

	db, err := app.Bootstrap(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	a, err := app.New(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer a.Close()

	optimize, err := prompt.Confirm("Optimize the query for web search?", true)
	if err != nil {
		return err
	}

	query, err := prompt.Text("Search query:")
	if err != nil {
		return err
	}
	if optimize {
		optimized, err := a.Optimizer.Optimize(ctx, query)
		if err != nil {
			slog.WarnContext(ctx, "query optimization failed, using original", "error", err)
			fmt.Println("Query optimization failed, continuing with the original query.")
		} else {
			fmt.Printf("Optimized query: %s\n", optimized)
			query = optimized
		}
	}

	resultCount, err := prompt.IntInRange("How many search results to seed from? (1-20)", 1, 20)
	if err != nil {
		return err
	}

	key := sink.FilenameKey(query)
	svc, sheet, err := a.NewCrawlService(query, key)
	if err != nil {
		return err
	}
	defer sheet.Close()

	seeds, err := svc.Seeds(ctx, query, resultCount)
	if err != nil {
		return fmt.Errorf("seed search error: %w", err)
	}
	if len(seeds) == 0 {
		fmt.Println("No search results found, nothing to crawl.")
		return nil
	}
	fmt.Printf("Found %d seed URLs:\n", len(seeds))
	for i, url := range seeds {
		fmt.Printf("  %d. %s\n", i+1, url)
	}

	if err := chooseCollection(ctx, a.Records, key); err != nil {
		return err
	}

	maxDepth, err := prompt.IntMin("Maximum crawl depth? (0 = seeds only)", 0)
	if err != nil {
		return err
	}
	maxDocs, err := prompt.IntMin("Maximum documents to process?", 1)
	if err != nil {
		return err
	}

	fmt.Println("Crawling... progress is written to", cfg.LogPath)
	summary, runErr := svc.Run(ctx, crawl.RunParams{
		Query:        query,
		MaxDepth:     maxDepth,
		MaxDocuments: maxDocs,
		FilenameKey:  key,
	}, seeds)

	printSummary(summary)
	fmt.Println("Relevant URLs:", sheet.Path())
	fmt.Println("Run overview: ", a.Snapshots.Path(key))

	var credErr *crawl.CredentialError
	if errors.As(runErr, &credErr) {
		return fmt.Errorf("crawl aborted: %w", credErr)
	}
	return runErr
}

func chooseCollection(ctx context.Context, records *crawl.PostgresRepo, def string) error {
	collections, err := records.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections error: %w", err)
	}
	if len(collections) > 0 {
		fmt.Println("Existing collections:")
		for _, c := range collections {
			fmt.Printf("  %s (%d documents)\n", c.Name, c.Documents)
		}
	}
	name, err := prompt.TextDefault("Collection to store documents in:", def)
	if err != nil {
		return err
	}
	records.SetCollection(name)
	return nil
}

func printSummary(s crawl.Summary) {
	fmt.Println("\nCrawl finished.")
	fmt.Printf("  Processed:      %d documents over %d levels\n", s.Processed, s.Levels)
	fmt.Printf("  Relevant:       %d\n", s.Relevant)
	fmt.Printf("  Irrelevant:     %d\n", s.Irrelevant)
	fmt.Printf("  Errors:         %d\n", s.Errored)
	fmt.Printf("  Invalid:        %d\n", s.Invalid)
	fmt.Printf("  Extraction:     %s\n", s.ExtractionTime.Round(time.Second))
	fmt.Printf("  Classification: %s\n", s.ClassificationTime.Round(time.Second))
}
