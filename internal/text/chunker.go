package text

import (
	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer is the tokenization scheme shared between the chunker and the
// downstream classification call, so chunk-size and overlap bounds are exact
// token counts rather than character estimates.
type Tokenizer interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type Chunker struct {
	tok       Tokenizer
	maxTokens int
	overlap   int
}

// NewChunker builds an overlapping token chunker. overlap must be smaller
// than maxTokens.
func NewChunker(tok Tokenizer, maxTokens, overlap int) *Chunker {
	return &Chunker{tok: tok, maxTokens: maxTokens, overlap: overlap}
}

// Split cuts text into segments of at most maxTokens tokens, with consecutive
// segments sharing the configured overlap. Text that fits in one segment is
// returned verbatim, untouched by the encode/decode round trip.
func (c *Chunker) Split(text string) []string {
	tokens := c.tok.Encode(text)
	if len(tokens) <= c.maxTokens {
		return []string{text}
	}

	stride := c.maxTokens - c.overlap
	chunks := make([]string, 0, (len(tokens)-c.overlap+stride-1)/stride)
	for start := 0; ; start += stride {
		end := start + c.maxTokens
		if end >= len(tokens) {
			chunks = append(chunks, c.tok.Decode(tokens[start:]))
			break
		}
		chunks = append(chunks, c.tok.Decode(tokens[start:end]))
	}
	return chunks
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer returns the cl100k_base tokenizer, the same scheme the
// classification provider's token budgets are stated in.
func NewTiktokenTokenizer() (Tokenizer, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &tiktokenTokenizer{enc: enc}, nil
}

func (t *tiktokenTokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *tiktokenTokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
