package clients

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// NewGenAI creates the Gemini API client shared by the generator, the
// summarizer and the embedder. A missing key is rejected here so the
// process fails at startup instead of on the first research call.
func NewGenAI(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini API client: %w", err)
	}
	return client, nil
}
