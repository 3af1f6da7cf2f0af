// Package llm defines the model invocation interface and its provider
// implementations. Chains treat the model as a long-latency synchronous
// dependency: prompt text in, generated text out, cancellable through
// the request context.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Client defines the interface for LLM interactions.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider    string // "openai" or "gemini"
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// New builds a Client for the configured provider.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key not configured for provider %q", cfg.Provider)
	}

	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIClient(cfg), nil
	case "gemini":
		return NewGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
