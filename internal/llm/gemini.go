package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// #region client-struct
// GeminiClient backs the LanguageModel interface with the Gemini API.
type GeminiClient struct {
	client     *genai.Client
	model      string
	embedModel string
}

// #endregion client-struct

// #region constructor
// NewGeminiClient connects to the Gemini API with the given key and models.
func NewGeminiClient(ctx context.Context, apiKey, model, embedModel string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &GeminiClient{
		client:     client,
		model:      model,
		embedModel: embedModel,
	}, nil
}

// Close shuts down the underlying API connection.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// #endregion constructor

// #region complete
// Complete sends a prompt and returns the concatenated text parts of the
// first candidate. The pipeline asks for JSON, so the response MIME type
// is pinned to application/json.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	m := c.client.GenerativeModel(c.model)
	m.ResponseMIMEType = "application/json"
	m.SetTemperature(0.1)

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classifyErr("generate content", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("generate content: empty candidate: %w", ErrSchemaViolation)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("generate content: no text parts: %w", ErrSchemaViolation)
	}
	return sb.String(), nil
}

// #endregion complete

// #region embed
// Embed returns the embedding vector for text.
func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	em := c.client.EmbeddingModel(c.embedModel)
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, classifyErr("embed content", err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embed content: empty embedding: %w", ErrSchemaViolation)
	}
	return resp.Embedding.Values, nil
}

// #endregion embed

// #region classify-err
// classifyErr folds transport errors into the taxonomy so the retry layer
// can tell transient from permanent.
func classifyErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %v: %w", op, err, ErrModelTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %v: %w", op, err, ErrModelUnavailable)
}

// #endregion classify-err
