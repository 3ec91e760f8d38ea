package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"trendlens/internal/config"
	"trendlens/internal/domain/trend"
)

// ErrNoContent is returned when a provider answers without any text
var ErrNoContent = errors.New("no response content")

// NewClient builds the text generator for the configured provider. A
// positive cfg.Timeout bounds every call.
func NewClient(ctx context.Context, cfg config.LLMConfig) (trend.TextGenerator, error) {
	generator, err := newProviderClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		return &timeoutGenerator{next: generator, timeout: cfg.Timeout}, nil
	}
	return generator, nil
}

func newProviderClient(ctx context.Context, cfg config.LLMConfig) (trend.TextGenerator, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens), nil

	case "gemini":
		c, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		return c, nil

	case "claude":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens), nil

	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		return NewOpenAIClient(apiKey, cfg.Model, baseURL, cfg.MaxTokens), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}

type timeoutGenerator struct {
	next    trend.TextGenerator
	timeout time.Duration
}

func (g *timeoutGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return g.next.Generate(ctx, prompt)
}

// Close releases provider resources when the client holds any
func Close(generator trend.TextGenerator) error {
	if g, ok := generator.(*timeoutGenerator); ok {
		generator = g.next
	}
	if c, ok := generator.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
