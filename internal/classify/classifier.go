package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

type Label string

const (
	LabelRelevant   Label = "Relevant"
	LabelIrrelevant Label = "Irrelevant"
	LabelError      Label = "ERROR"
)

// labelPriority orders labels for document-level aggregation: an ERROR in any
// segment dominates, failing that Relevant dominates Irrelevant.
var labelPriority = map[Label]int{
	LabelIrrelevant: 0,
	LabelRelevant:   1,
	LabelError:      2,
}

type Verdict struct {
	Classification Label  `json:"classification"`
	Explanation    string `json:"explanation"`
	Summary        string `json:"summary"`
}

var ErrAllSegmentsMalformed = errors.New("classify: every segment response was malformed")

// MalformedVerdictError reports a classification response that could not be
// parsed as a structured verdict. Callers branch on it: the level loop treats
// it as a loud stop condition rather than a per-URL skip.
type MalformedVerdictError struct {
	Raw string
	Err error
}

func (e *MalformedVerdictError) Error() string {
	return fmt.Sprintf("classify: malformed verdict %q: %v", e.Raw, e.Err)
}

func (e *MalformedVerdictError) Unwrap() error { return e.Err }

// ChunkModel classifies one text segment against the query and returns the
// provider's raw structured-output response.
type ChunkModel interface {
	ClassifyChunk(ctx context.Context, query, chunk string) (string, error)
}

type Splitter interface {
	Split(text string) []string
}

// Classifier splits a document into overlapping token-bounded segments,
// classifies each independently, and aggregates segment verdicts into one
// document-level verdict.
type Classifier struct {
	model    ChunkModel
	splitter Splitter
}

func NewClassifier(model ChunkModel, splitter Splitter) *Classifier {
	return &Classifier{model: model, splitter: splitter}
}

func (c *Classifier) Classify(ctx context.Context, documentText, query string) (Verdict, error) {
	segments := c.splitter.Split(documentText)
	slog.InfoContext(ctx, "classifying document", "segments", len(segments))

	if len(segments) == 1 {
		raw, err := c.model.ClassifyChunk(ctx, query, segments[0])
		if err != nil {
			return Verdict{}, err
		}
		return parseVerdict(raw)
	}

	verdicts := make([]Verdict, 0, len(segments))
	for i, segment := range segments {
		raw, err := c.model.ClassifyChunk(ctx, query, segment)
		if err != nil {
			return Verdict{}, fmt.Errorf("segment %d/%d: %w", i+1, len(segments), err)
		}
		v, err := parseVerdict(raw)
		if err != nil {
			slog.WarnContext(ctx, "skipping malformed segment verdict", "segment", i+1, "error", err)
			continue
		}
		verdicts = append(verdicts, v)
	}

	if len(verdicts) == 0 {
		return Verdict{}, ErrAllSegmentsMalformed
	}
	return aggregate(verdicts), nil
}

func parseVerdict(raw string) (Verdict, error) {
	var v Verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return Verdict{}, &MalformedVerdictError{Raw: raw, Err: err}
	}
	switch v.Classification {
	case LabelRelevant, LabelIrrelevant, LabelError:
		return v, nil
	}
	return Verdict{}, &MalformedVerdictError{Raw: raw, Err: fmt.Errorf("unknown classification %q", v.Classification)}
}

func aggregate(verdicts []Verdict) Verdict {
	dominant := verdicts[0].Classification
	for _, v := range verdicts[1:] {
		if labelPriority[v.Classification] > labelPriority[dominant] {
			dominant = v.Classification
		}
	}

	if dominant != LabelRelevant {
		// Explanation and summary come verbatim from the first segment
		// carrying the dominant label.
		for _, v := range verdicts {
			if v.Classification == dominant {
				return v
			}
		}
	}

	var explanations, summaries []string
	seenExplanation := make(map[string]bool)
	seenSummary := make(map[string]bool)
	for _, v := range verdicts {
		if v.Classification != LabelRelevant {
			continue
		}
		if !seenExplanation[v.Explanation] {
			seenExplanation[v.Explanation] = true
			explanations = append(explanations, v.Explanation)
		}
		if v.Summary != "" && !seenSummary[v.Summary] {
			seenSummary[v.Summary] = true
			summaries = append(summaries, v.Summary)
		}
	}

	return Verdict{
		Classification: LabelRelevant,
		Explanation:    strings.Join(explanations, " | "),
		Summary:        strings.Join(summaries, " | "),
	}
}
