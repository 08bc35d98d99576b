package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"gazette/internal/config"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-flash-lite-latest"

// GeminiClient implements ChatClient on the Gemini API.
type GeminiClient struct {
	modelName string
	gClient   *genai.Client
}

var _ ChatClient = (*GeminiClient)(nil)

// NewGeminiClient builds a client from configuration.
func NewGeminiClient(cfg config.GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY or ai.gemini.api_key in the config file")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultGeminiModel
	}

	gClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		modelName: modelName,
		gClient:   gClient,
	}, nil
}

// Complete generates content for the exchange. Gemini has no separate system
// role on this path, so the system prompt rides ahead of the user prompt in a
// single user turn.
func (c *GeminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{
			{Text: systemPrompt},
			{Text: userPrompt},
		},
		Role: "user",
	}}

	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return text, nil
}
