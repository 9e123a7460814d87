package crawl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"insightsearch/internal/classify"
	"insightsearch/internal/extract"
)

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Fetch(ctx context.Context, url string, level int) (*extract.Document, extract.Outcome) {
	args := m.Called(ctx, url, level)
	var doc *extract.Document
	if args.Get(0) != nil {
		doc = args.Get(0).(*extract.Document)
	}
	return doc, args.Get(1).(extract.Outcome)
}

type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, content, query string) (classify.Verdict, error) {
	args := m.Called(ctx, content, query)
	return args.Get(0).(classify.Verdict), args.Error(1)
}

type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) SaveDocument(ctx context.Context, doc Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

type MockLinkExporter struct {
	mock.Mock
}

func (m *MockLinkExporter) AppendURL(url string) error {
	args := m.Called(url)
	return args.Error(0)
}

type noopSnapshots struct{}

func (noopSnapshots) Save(key string, payload any) error { return nil }

func successDoc(url string, level int, links ...string) *extract.Document {
	return &extract.Document{URL: url, Markdown: "# " + url, Links: links, Level: level}
}

func verdict(label classify.Label) classify.Verdict {
	return classify.Verdict{Classification: label, Explanation: "because", Summary: "about " + string(label)}
}

func newTestFrontier(extractor *MockExtractor, classifier *MockClassifier, records *MockRecordStore, links *MockLinkExporter, opts ...FrontierOption) *Frontier {
	opts = append(opts, WithSleep(func(time.Duration) {}))
	return NewFrontier(extractor, classifier, records, links, noopSnapshots{}, opts...)
}

func TestFrontier_ProcessLevel(t *testing.T) {
	ctx := context.Background()

	t.Run("classifies and records every fetched document", func(t *testing.T) {
		extractor := new(MockExtractor)
		classifier := new(MockClassifier)
		records := new(MockRecordStore)
		links := new(MockLinkExporter)

		urls := []string{"https://a.test", "https://b.test", "https://c.test"}
		labels := map[string]classify.Label{
			"https://a.test": classify.LabelRelevant,
			"https://b.test": classify.LabelIrrelevant,
			"https://c.test": classify.LabelRelevant,
		}
		for _, url := range urls {
			doc := successDoc(url, 0)
			extractor.On("Fetch", ctx, url, 0).Return(doc, extract.Outcome{Category: extract.CategorySuccess, Code: 200})
			classifier.On("Classify", ctx, doc.Markdown, "q").Return(verdict(labels[url]), nil)
		}
		records.On("SaveDocument", ctx, mock.Anything).Return(nil).Times(3)
		links.On("AppendURL", "https://a.test").Return(nil)
		links.On("AppendURL", "https://c.test").Return(nil)

		ledger := NewLedger("q")
		frontier := newTestFrontier(extractor, classifier, records, links)
		res, err := frontier.ProcessLevel(ctx, ledger, urls, 0, 3, "key")
		require.NoError(t, err)

		assert.Equal(t, 3, res.Processed)
		relevant, irrelevant, errored := ledger.Counts()
		assert.Equal(t, 2, relevant)
		assert.Equal(t, 1, irrelevant)
		assert.Equal(t, 0, errored)
		records.AssertExpectations(t)
		links.AssertExpectations(t)
	})

	t.Run("rate limit sleeps the cooldown and leaves the url unrecorded", func(t *testing.T) {
		extractor := new(MockExtractor)
		classifier := new(MockClassifier)
		records := new(MockRecordStore)
		links := new(MockLinkExporter)

		extractor.On("Fetch", ctx, "https://limited.test", 0).
			Return(nil, extract.Outcome{Category: extract.CategoryRateLimited, Code: 429})

		var slept []time.Duration
		frontier := NewFrontier(extractor, classifier, records, links, noopSnapshots{},
			WithCooldown(61*time.Second),
			WithSleep(func(d time.Duration) { slept = append(slept, d) }))

		ledger := NewLedger("q")
		res, err := frontier.ProcessLevel(ctx, ledger, []string{"https://limited.test"}, 0, 5, "key")
		require.NoError(t, err)

		assert.Equal(t, []time.Duration{61 * time.Second}, slept)
		assert.False(t, ledger.Seen("https://limited.test"))
		assert.Equal(t, 1, res.Processed)
	})

	t.Run("timeout is skipped without classification", func(t *testing.T) {
		extractor := new(MockExtractor)
		classifier := new(MockClassifier)
		records := new(MockRecordStore)
		links := new(MockLinkExporter)

		extractor.On("Fetch", ctx, "https://slow.test", 0).
			Return(nil, extract.Outcome{Category: extract.CategoryTimeout})

		ledger := NewLedger("q")
		frontier := newTestFrontier(extractor, classifier, records, links)
		res, err := frontier.ProcessLevel(ctx, ledger, []string{"https://slow.test"}, 0, 5, "key")
		require.NoError(t, err)

		assert.Equal(t, 1, res.Processed)
		assert.Equal(t, 0, ledger.Size())
		classifier.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("fatal provider status aborts with credential error", func(t *testing.T) {
		extractor := new(MockExtractor)
		classifier := new(MockClassifier)
		records := new(MockRecordStore)
		links := new(MockLinkExporter)

		extractor.On("Fetch", ctx, "https://a.test", 0).
			Return(nil, extract.Outcome{Category: extract.CategoryFatal, Code: 402})

		ledger := NewLedger("q")
		frontier := newTestFrontier(extractor, classifier, records, links)
		_, err := frontier.ProcessLevel(ctx, ledger, []string{"https://a.test", "https://b.test"}, 0, 5, "key")

		var credErr *CredentialError
		require.ErrorAs(t, err, &credErr)
		assert.Equal(t, 402, credErr.Code)
		assert.Equal(t, "https://a.test", credErr.URL)
		extractor.AssertNumberOfCalls(t, "Fetch", 1)
	})

	t.Run("remaining budget caps processing", func(t *testing.T) {
		extractor := new(MockExtractor)
		classifier := new(MockClassifier)
		records := new(MockRecordStore)
		links := new(MockLinkExporter)

		doc := successDoc("https://a.test", 0)
		extractor.On("Fetch", ctx, "https://a.test", 0).Return(doc, extract.Outcome{Category: extract.CategorySuccess, Code: 200})
		classifier.On("Classify", ctx, doc.Markdown, "q").Return(verdict(classify.LabelIrrelevant), nil)
		records.On("SaveDocument", ctx, mock.Anything).Return(nil)

		urls := []string{"https://a.test", "https://b.test", "https://c.test", "https://d.test", "https://e.test"}
		ledger := NewLedger("q")
		frontier := newTestFrontier(extractor, classifier, records, links)
		res, err := frontier.ProcessLevel(ctx, ledger, urls, 0, 1, "key")
		require.NoError(t, err)

		assert.Equal(t, 1, res.Processed)
		extractor.AssertNumberOfCalls(t, "Fetch", 1)
	})

	t.Run("relevant links feed next level up to the cap", func(t *testing.T) {
		extractor := new(MockExtractor)
		classifier := new(MockClassifier)
		records := new(MockRecordStore)
		links := new(MockLinkExporter)

		doc := successDoc("https://a.test", 0, "https://a.test", "https://x.test", "https://y.test", "https://z.test")
		extractor.On("Fetch", ctx, "https://a.test", 0).Return(doc, extract.Outcome{Category: extract.CategorySuccess, Code: 200})
		classifier.On("Classify", ctx, doc.Markdown, "q").Return(verdict(classify.LabelRelevant), nil)
		records.On("SaveDocument", ctx, mock.Anything).Return(nil)
		links.On("AppendURL", "https://a.test").Return(nil)

		ledger := NewLedger("q")
		frontier := newTestFrontier(extractor, classifier, records, links)
		// budget 3, one url this level: at most 2 links may be queued,
		// and the already visited url is excluded.
		res, err := frontier.ProcessLevel(ctx, ledger, []string{"https://a.test"}, 0, 3, "key")
		require.NoError(t, err)

		assert.Equal(t, []string{"https://x.test", "https://y.test"}, res.NextLinks)
	})

	t.Run("irrelevant document contributes no links", func(t *testing.T) {
		extractor := new(MockExtractor)
		classifier := new(MockClassifier)
		records := new(MockRecordStore)
		links := new(MockLinkExporter)

		doc := successDoc("https://a.test", 0, "https://x.test")
		extractor.On("Fetch", ctx, "https://a.test", 0).Return(doc, extract.Outcome{Category: extract.CategorySuccess, Code: 200})
		classifier.On("Classify", ctx, doc.Markdown, "q").Return(verdict(classify.LabelIrrelevant), nil)
		records.On("SaveDocument", ctx, mock.Anything).Return(nil)

		ledger := NewLedger("q")
		frontier := newTestFrontier(extractor, classifier, records, links)
		res, err := frontier.ProcessLevel(ctx, ledger, []string{"https://a.test"}, 0, 10, "key")
		require.NoError(t, err)

		assert.Empty(t, res.NextLinks)
		links.AssertNotCalled(t, "AppendURL", mock.Anything)
	})

	t.Run("unusable verdict stops the level", func(t *testing.T) {
		extractor := new(MockExtractor)
		classifier := new(MockClassifier)
		records := new(MockRecordStore)
		links := new(MockLinkExporter)

		doc := successDoc("https://a.test", 0)
		extractor.On("Fetch", ctx, "https://a.test", 0).Return(doc, extract.Outcome{Category: extract.CategorySuccess, Code: 200})
		classifier.On("Classify", ctx, doc.Markdown, "q").
			Return(classify.Verdict{}, &classify.MalformedVerdictError{Raw: "not json", Err: errors.New("invalid character")})

		ledger := NewLedger("q")
		frontier := newTestFrontier(extractor, classifier, records, links)
		res, err := frontier.ProcessLevel(ctx, ledger, []string{"https://a.test", "https://b.test"}, 0, 5, "key")
		require.NoError(t, err)

		assert.True(t, res.Stopped)
		extractor.AssertNumberOfCalls(t, "Fetch", 1)
	})

	t.Run("other classification errors skip the document only", func(t *testing.T) {
		extractor := new(MockExtractor)
		classifier := new(MockClassifier)
		records := new(MockRecordStore)
		links := new(MockLinkExporter)

		broken := successDoc("https://a.test", 0)
		good := successDoc("https://b.test", 0)
		extractor.On("Fetch", ctx, "https://a.test", 0).Return(broken, extract.Outcome{Category: extract.CategorySuccess, Code: 200})
		extractor.On("Fetch", ctx, "https://b.test", 0).Return(good, extract.Outcome{Category: extract.CategorySuccess, Code: 200})
		classifier.On("Classify", ctx, broken.Markdown, "q").Return(classify.Verdict{}, errors.New("model unavailable"))
		classifier.On("Classify", ctx, good.Markdown, "q").Return(verdict(classify.LabelRelevant), nil)
		records.On("SaveDocument", ctx, mock.Anything).Return(nil)
		links.On("AppendURL", "https://b.test").Return(nil)

		ledger := NewLedger("q")
		frontier := newTestFrontier(extractor, classifier, records, links)
		res, err := frontier.ProcessLevel(ctx, ledger, []string{"https://a.test", "https://b.test"}, 0, 5, "key")
		require.NoError(t, err)

		assert.False(t, res.Stopped)
		assert.Equal(t, 2, res.Processed)
		assert.False(t, ledger.Seen("https://a.test"))
		assert.True(t, ledger.Seen("https://b.test"))
	})

	t.Run("empty markdown is skipped", func(t *testing.T) {
		extractor := new(MockExtractor)
		classifier := new(MockClassifier)
		records := new(MockRecordStore)
		links := new(MockLinkExporter)

		empty := &extract.Document{URL: "https://a.test", Level: 0}
		extractor.On("Fetch", ctx, "https://a.test", 0).Return(empty, extract.Outcome{Category: extract.CategorySuccess, Code: 200})

		ledger := NewLedger("q")
		frontier := newTestFrontier(extractor, classifier, records, links)
		_, err := frontier.ProcessLevel(ctx, ledger, []string{"https://a.test"}, 0, 5, "key")
		require.NoError(t, err)

		assert.Equal(t, 0, ledger.Size())
		classifier.AssertNotCalled(t, "Classify", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("batch pause after configured document count", func(t *testing.T) {
		extractor := new(MockExtractor)
		classifier := new(MockClassifier)
		records := new(MockRecordStore)
		links := new(MockLinkExporter)

		urls := []string{"https://a.test", "https://b.test", "https://c.test"}
		for _, url := range urls {
			doc := successDoc(url, 0)
			extractor.On("Fetch", ctx, url, 0).Return(doc, extract.Outcome{Category: extract.CategorySuccess, Code: 200})
			classifier.On("Classify", ctx, doc.Markdown, "q").Return(verdict(classify.LabelIrrelevant), nil)
		}
		records.On("SaveDocument", ctx, mock.Anything).Return(nil)

		var pauses int
		frontier := NewFrontier(extractor, classifier, records, links, noopSnapshots{},
			WithBatchPause(2),
			WithSleep(func(time.Duration) { pauses++ }))

		ledger := NewLedger("q")
		_, err := frontier.ProcessLevel(ctx, ledger, urls, 0, 10, "key")
		require.NoError(t, err)

		assert.Equal(t, 1, pauses)
	})
}

func TestLedger(t *testing.T) {
	t.Run("recording the same url twice keeps a single entry", func(t *testing.T) {
		ledger := NewLedger("q")
		ledger.Record("https://a.test", LedgerEntry{Level: 0, Classification: classify.LabelRelevant})
		ledger.Record("https://a.test", LedgerEntry{Level: 1, Classification: classify.LabelIrrelevant})

		assert.Equal(t, 1, ledger.Size())
		assert.Equal(t, 1, ledger.Entries()["https://a.test"].Level)
	})

	t.Run("counts group by classification", func(t *testing.T) {
		ledger := NewLedger("q")
		ledger.Record("https://a.test", LedgerEntry{Classification: classify.LabelRelevant})
		ledger.Record("https://b.test", LedgerEntry{Classification: classify.LabelRelevant})
		ledger.Record("https://c.test", LedgerEntry{Classification: classify.LabelIrrelevant})
		ledger.Record("https://d.test", LedgerEntry{Classification: classify.LabelError})

		relevant, irrelevant, errored := ledger.Counts()
		assert.Equal(t, 2, relevant)
		assert.Equal(t, 1, irrelevant)
		assert.Equal(t, 1, errored)
	})
}
