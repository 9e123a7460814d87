package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const classifierInstruction = `Classify the provided document text based on its relevance to the user query, relying solely on the content of the document.

You will receive two inputs:
1. **User query**: A short text that describes what the user is looking for, typically in the form of a question or description containing keywords.
2. **Document text**: The document in Markdown format, which may include references or sources within the text.

Your task:
1. Compare the document text with the user query and determine its relevance based solely on the information contained in the document.
2. Summarize the document's content (maximum 30 tokens).
3. Provide a brief explanation for your classification (maximum 30 tokens).
4. Classify the document into one of the following categories:
- **Relevant**: The document directly addresses the user query and provides useful information related to it.
- **Irrelevant**: The document does not address the user query or contains only unrelated information.

# Output Format
The output must be JSON with exactly this structure:
{
"classification": "Relevant/Irrelevant",
"explanation": "Brief explanation (max 30 tokens)",
"summary": "Summary of document content (max 30 tokens)"
}

# Notes
- Base the classification strictly on the document text without introducing any assumptions or invented information.
- If the document text is inaccessible, an error occurs, or access was denied, return:
{
"classification": "ERROR",
"explanation": "Error description",
"summary": "What the document is about except the error"
}`

// Classifier issues structured-output relevance verdicts for single text
// segments against a user query.
type Classifier struct {
	client *genai.Client
	model  string
}

func NewClassifier(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Classifier, error) {
	opts = append(opts, option.WithAPIKey(apiKey))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &Classifier{client: client, model: model}, nil
}

func (c *Classifier) Close() error { return c.client.Close() }

func (c *Classifier) ClassifyChunk(ctx context.Context, query, chunk string) (string, error) {
	m := c.client.GenerativeModel(c.model)
	m.SetTemperature(0)
	m.SetMaxOutputTokens(300)
	m.ResponseMIMEType = "application/json"
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(classifierInstruction)}}

	prompt := fmt.Sprintf("User query: %s\n\nDocument text:\n%s", query, chunk)
	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		slog.ErrorContext(ctx, "classification call failed", "model", c.model, "error", err)
		return "", err
	}
	return textResponse(resp)
}

func textResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: empty response")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String(), nil
}
