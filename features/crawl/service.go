package crawl

import (
	"context"
	"log/slog"
	"time"
)

// Service runs complete crawls: seed search, level-by-level frontier
// processing, and the final overview snapshot.
type Service struct {
	search    SeedSearcher
	frontier  *Frontier
	snapshots SnapshotWriter

	cooldown time.Duration
	sleep    func(time.Duration)
}

type ServiceOption func(*Service)

// WithLevelCooldown overrides the pause between crawl levels.
func WithLevelCooldown(d time.Duration) ServiceOption {
	return func(s *Service) { s.cooldown = d }
}

// WithServiceSleep replaces the sleep function for tests.
func WithServiceSleep(fn func(time.Duration)) ServiceOption {
	return func(s *Service) { s.sleep = fn }
}

func NewService(search SeedSearcher, frontier *Frontier, snapshots SnapshotWriter, opts ...ServiceOption) *Service {
	s := &Service{
		search:    search,
		frontier:  frontier,
		snapshots: snapshots,
		cooldown:  defaultCooldown,
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunParams bounds a crawl run.
type RunParams struct {
	Query        string
	MaxDepth     int
	MaxDocuments int
	FilenameKey  string
}

// Summary reports the outcome of a finished run.
type Summary struct {
	Relevant           int
	Irrelevant         int
	Errored            int
	Invalid            int
	Processed          int
	Levels             int
	ExtractionTime     time.Duration
	ClassificationTime time.Duration
}

// Seeds queries the search engine for the initial frontier.
func (s *Service) Seeds(ctx context.Context, query string, count int) ([]string, error) {
	return s.search.Search(ctx, query, count)
}

// Run crawls from the given seeds until depth or the document budget is
// exhausted. The run-state snapshot on disk is kept current throughout,
// so a partial summary survives even when Run returns an error.
func (s *Service) Run(ctx context.Context, params RunParams, seeds []string) (Summary, error) {
	ledger := NewLedger(params.Query)
	var summary Summary

	if err := s.snapshots.Save(params.FilenameKey, snapshotPayload(ledger, nil)); err != nil {
		slog.ErrorContext(ctx, "snapshot save failed", "error", err)
	}

	current := seeds
	var runErr error
	for level := 0; level <= params.MaxDepth; level++ {
		if len(current) == 0 {
			slog.InfoContext(ctx, "frontier empty, stopping", "level", level)
			break
		}
		remaining := params.MaxDocuments - summary.Processed
		if remaining <= 0 {
			slog.InfoContext(ctx, "document budget exhausted", "level", level)
			break
		}

		toProcess := min(remaining, len(current))
		slog.InfoContext(ctx, "processing level", "level", level, "urls", toProcess, "remaining", remaining)

		res, err := s.frontier.ProcessLevel(ctx, ledger, current, level, remaining, params.FilenameKey)
		summary.Processed += res.Processed
		summary.ExtractionTime += res.ExtractionTime
		summary.ClassificationTime += res.ClassificationTime
		summary.Levels = level + 1
		slog.InfoContext(ctx, "level complete",
			"level", level,
			"processed", res.Processed,
			"next_links", len(res.NextLinks),
			"stopped_early", res.Stopped,
			"extraction_time", res.ExtractionTime,
			"classification_time", res.ClassificationTime)
		if err != nil {
			runErr = err
			break
		}

		current = res.NextLinks
		if len(current) > 0 && level < params.MaxDepth {
			slog.InfoContext(ctx, "pausing before next level", "cooldown", s.cooldown)
			s.sleep(s.cooldown)
		}
	}

	summary.Relevant, summary.Irrelevant, summary.Errored = ledger.Counts()
	summary.Invalid = params.MaxDocuments - ledger.Size()
	if summary.Invalid < 0 {
		summary.Invalid = 0
	}

	overview := &Overview{
		RelevantCount:   summary.Relevant,
		IrrelevantCount: summary.Irrelevant,
		ErrorCount:      summary.Errored,
		InvalidCount:    summary.Invalid,
	}
	if err := s.snapshots.Save(params.FilenameKey, snapshotPayload(ledger, overview)); err != nil {
		slog.ErrorContext(ctx, "final snapshot save failed", "error", err)
	}
	return summary, runErr
}
