package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const optimizerInstruction = `Rewrite the user's search query into a concise, keyword-focused query optimized for a web search engine. Keep the original intent. Return only the optimized query with no quotes, labels, or commentary.`

// Optimizer rewrites a free-form user query into a search-engine friendly one.
type Optimizer struct {
	client *genai.Client
	model  string
}

func NewOptimizer(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Optimizer, error) {
	opts = append(opts, option.WithAPIKey(apiKey))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Optimizer{client: client, model: model}, nil
}

func (o *Optimizer) Close() error { return o.client.Close() }

func (o *Optimizer) Optimize(ctx context.Context, query string) (string, error) {
	m := o.client.GenerativeModel(o.model)
	m.SetTemperature(0.3)
	m.SetMaxOutputTokens(64)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(optimizerInstruction)}}

	resp, err := m.GenerateContent(ctx, genai.Text(query))
	if err != nil {
		return "", err
	}
	text, err := textResponse(resp)
	if err != nil {
		return "", err
	}
	optimized := strings.TrimSpace(text)
	if optimized == "" {
		return "", fmt.Errorf("gemini: optimizer returned empty query")
	}
	return optimized, nil
}
