// Package llm provides chat-completion clients for the hosted model
// providers the pipeline can write with.
package llm

import (
	"context"
	"fmt"

	"gazette/internal/config"
)

// ChatClient sends one system+user exchange to a hosted model and returns the
// raw response text. Implementations do not retry.
type ChatClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// New builds the chat client selected by ai.provider.
func New(cfg config.AI) (ChatClient, error) {
	switch cfg.Provider {
	case "openrouter":
		return NewOpenRouterClient(cfg.OpenRouter)
	case "gemini":
		return NewGeminiClient(cfg.Gemini)
	}
	return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
}
