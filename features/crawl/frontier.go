package crawl

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"insightsearch/internal/classify"
	"insightsearch/internal/extract"
)

const (
	defaultCooldown   = 61 * time.Second
	defaultBatchEvery = 100
)

// Frontier processes one crawl level at a time: fetch, classify,
// persist, and collect the links that seed the next level.
type Frontier struct {
	extractor  Extractor
	classifier Classifier
	records    RecordStore
	links      LinkExporter
	snapshots  SnapshotWriter

	cooldown   time.Duration
	batchEvery int
	sleep      func(time.Duration)
}

type FrontierOption func(*Frontier)

// WithCooldown overrides the pause applied after rate limits and full
// batches.
func WithCooldown(d time.Duration) FrontierOption {
	return func(f *Frontier) { f.cooldown = d }
}

// WithBatchPause overrides how many documents are processed between
// courtesy pauses.
func WithBatchPause(n int) FrontierOption {
	return func(f *Frontier) { f.batchEvery = n }
}

// WithSleep replaces the sleep function, used by tests to observe
// pauses without waiting them out.
func WithSleep(fn func(time.Duration)) FrontierOption {
	return func(f *Frontier) { f.sleep = fn }
}

func NewFrontier(extractor Extractor, classifier Classifier, records RecordStore, links LinkExporter, snapshots SnapshotWriter, opts ...FrontierOption) *Frontier {
	f := &Frontier{
		extractor:  extractor,
		classifier: classifier,
		records:    records,
		links:      links,
		snapshots:  snapshots,
		cooldown:   defaultCooldown,
		batchEvery: defaultBatchEvery,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// LevelResult reports what a single level produced.
type LevelResult struct {
	NextLinks          []string
	Processed          int
	ExtractionTime     time.Duration
	ClassificationTime time.Duration
	Stopped            bool
}

// ProcessLevel fetches and classifies every URL of one level,
// snapshotting the ledger after each attempt. remaining caps how many
// documents may still be attempted; links queued for the next level are
// capped so the whole run cannot exceed the document budget. A fatal
// provider status aborts with a CredentialError. A verdict the model
// cannot produce in parseable form stops the level early, leaving
// Stopped set.
func (f *Frontier) ProcessLevel(ctx context.Context, ledger *Ledger, urls []string, level, remaining int, filenameKey string) (LevelResult, error) {
	var res LevelResult

	linkCap := remaining - len(urls)
	if linkCap < 0 {
		linkCap = 0
	}

	for _, url := range urls {
		if res.Processed >= remaining {
			break
		}
		res.Processed++

		slog.InfoContext(ctx, "fetching document", "url", url, "level", level)
		start := time.Now()
		doc, outcome := f.extractor.Fetch(ctx, url, level)
		res.ExtractionTime += time.Since(start)

		var stopLevel bool
		switch outcome.Category {
		case extract.CategoryFatal:
			return res, &CredentialError{URL: url, Code: outcome.Code}
		case extract.CategorySuccess:
			stopLevel = f.handleDocument(ctx, ledger, doc, linkCap, &res)
		case extract.CategoryRateLimited:
			slog.WarnContext(ctx, "extraction rate limited, cooling down", "url", url, "cooldown", f.cooldown)
			f.sleep(f.cooldown)
		default:
			slog.WarnContext(ctx, "skipping document", "url", url, "status", outcome.Category.String(), "code", outcome.Code)
		}

		if err := f.snapshots.Save(filenameKey, snapshotPayload(ledger, nil)); err != nil {
			slog.ErrorContext(ctx, "snapshot save failed", "error", err)
		}

		if stopLevel {
			res.Stopped = true
			break
		}
		if f.batchEvery > 0 && res.Processed%f.batchEvery == 0 && outcome.Category != extract.CategoryRateLimited {
			slog.InfoContext(ctx, "batch pause", "processed", res.Processed, "cooldown", f.cooldown)
			f.sleep(f.cooldown)
		}
	}
	return res, nil
}

// handleDocument classifies, persists and records one extracted page.
// It reports whether the level should stop because the classifier could
// not return a usable verdict.
func (f *Frontier) handleDocument(ctx context.Context, ledger *Ledger, doc *extract.Document, linkCap int, res *LevelResult) bool {
	if doc.Markdown == "" {
		slog.WarnContext(ctx, "document has no content, skipping", "url", doc.URL)
		return false
	}

	start := time.Now()
	verdict, err := f.classifier.Classify(ctx, doc.Markdown, ledger.Query)
	res.ClassificationTime += time.Since(start)
	if err != nil {
		var malformed *classify.MalformedVerdictError
		if errors.As(err, &malformed) || errors.Is(err, classify.ErrAllSegmentsMalformed) {
			slog.ErrorContext(ctx, "classifier returned unusable verdict, stopping level", "url", doc.URL, "error", err)
			return true
		}
		slog.ErrorContext(ctx, "classification failed, skipping document", "url", doc.URL, "error", err)
		return false
	}

	record := Document{
		URL:            doc.URL,
		Markdown:       doc.Markdown,
		Links:          doc.Links,
		Metadata:       doc.Metadata,
		Level:          doc.Level,
		Classification: verdict.Classification,
	}
	if err := f.records.SaveDocument(ctx, record); err != nil {
		slog.ErrorContext(ctx, "document persistence failed", "url", doc.URL, "error", err)
	}

	if verdict.Classification == classify.LabelRelevant {
		if err := f.links.AppendURL(doc.URL); err != nil {
			slog.ErrorContext(ctx, "spreadsheet append failed", "url", doc.URL, "error", err)
		}
	}

	ledger.Record(doc.URL, LedgerEntry{
		Level:          doc.Level,
		Classification: verdict.Classification,
		Explanation:    verdict.Explanation,
		Summary:        verdict.Summary,
	})

	if verdict.Classification == classify.LabelRelevant {
		for _, link := range doc.Links {
			if len(res.NextLinks) >= linkCap {
				break
			}
			if ledger.Seen(link) || slices.Contains(res.NextLinks, link) {
				continue
			}
			res.NextLinks = append(res.NextLinks, link)
		}
	}
	return false
}
