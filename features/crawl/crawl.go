// Package crawl drives depth-bounded, relevance-guided web crawls: a
// seed list is fetched level by level, every page is classified against
// the user's query, and links from relevant pages feed the next level
// until depth or document budget runs out.
package crawl

import (
	"context"
	"fmt"

	"insightsearch/internal/classify"
	"insightsearch/internal/extract"
)

// LedgerEntry records the outcome for a single visited URL.
type LedgerEntry struct {
	Level          int            `json:"level"`
	Classification classify.Label `json:"classification"`
	Explanation    string         `json:"explanation"`
	Summary        string         `json:"summary"`
}

// Ledger tracks every URL the crawl has attempted, deduplicating the
// frontier and backing the overview snapshots.
type Ledger struct {
	Query   string
	entries map[string]LedgerEntry
}

func NewLedger(query string) *Ledger {
	return &Ledger{Query: query, entries: make(map[string]LedgerEntry)}
}

func (l *Ledger) Record(url string, entry LedgerEntry) {
	l.entries[url] = entry
}

func (l *Ledger) Seen(url string) bool {
	_, ok := l.entries[url]
	return ok
}

func (l *Ledger) Size() int { return len(l.entries) }

// Entries returns a copy of the recorded URLs and their outcomes.
func (l *Ledger) Entries() map[string]LedgerEntry {
	out := make(map[string]LedgerEntry, len(l.entries))
	for url, e := range l.entries {
		out[url] = e
	}
	return out
}

// Counts tallies the ledger by classification label.
func (l *Ledger) Counts() (relevant, irrelevant, errored int) {
	for _, e := range l.entries {
		switch e.Classification {
		case classify.LabelRelevant:
			relevant++
		case classify.LabelIrrelevant:
			irrelevant++
		default:
			errored++
		}
	}
	return relevant, irrelevant, errored
}

// Overview summarizes a finished run for the final snapshot.
type Overview struct {
	RelevantCount   int `json:"relevant_count"`
	IrrelevantCount int `json:"irrelevant_count"`
	ErrorCount      int `json:"error_count"`
	InvalidCount    int `json:"invalid_count"`
}

type searchMeta struct {
	SearchQuery string `json:"search_query"`
}

type snapshot struct {
	Search   searchMeta             `json:"search"`
	Results  map[string]LedgerEntry `json:"results"`
	Overview *Overview              `json:"overview,omitempty"`
}

func snapshotPayload(l *Ledger, ov *Overview) snapshot {
	return snapshot{
		Search:   searchMeta{SearchQuery: l.Query},
		Results:  l.Entries(),
		Overview: ov,
	}
}

// Document is an extracted page together with its relevance verdict,
// ready for persistence.
type Document struct {
	URL            string
	Markdown       string
	Links          []string
	Metadata       map[string]any
	Level          int
	Classification classify.Label
}

// Extractor fetches a URL and returns the extracted document when the
// page yielded usable content.
type Extractor interface {
	Fetch(ctx context.Context, url string, level int) (*extract.Document, extract.Outcome)
}

// Classifier produces a relevance verdict for a document body.
type Classifier interface {
	Classify(ctx context.Context, content, query string) (classify.Verdict, error)
}

// RecordStore persists classified documents.
type RecordStore interface {
	SaveDocument(ctx context.Context, doc Document) error
}

// LinkExporter receives the URLs of relevant documents.
type LinkExporter interface {
	AppendURL(url string) error
}

// SnapshotWriter persists run-state overviews.
type SnapshotWriter interface {
	Save(key string, payload any) error
}

// SeedSearcher returns seed URLs for a query from a web search engine.
type SeedSearcher interface {
	Search(ctx context.Context, query string, count int) ([]string, error)
}

// CredentialError aborts a run when the extraction provider rejects the
// account itself, typically on exhausted credits or a revoked key.
type CredentialError struct {
	URL  string
	Code int
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("extraction credentials rejected (status %d) while fetching %s", e.Code, e.URL)
}
