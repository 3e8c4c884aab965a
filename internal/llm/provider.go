package llm

import (
	"context"
)

// Provider defines the interface for LLM text-completion providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one prompt and returns the model's text
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest is one prompt for a provider
type CompletionRequest struct {
	// System is an optional system instruction
	System string

	// Prompt is the user message
	Prompt string

	// Model overrides the provider's configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature controls sampling; zero means provider default
	Temperature float32
}

// CompletionResponse is a provider's answer
type CompletionResponse struct {
	// Text is the generated text, trimmed
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", "huggingface", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for hosted providers
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens is the default response limit
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   30,
		MaxTokens: 1000,
	}
}

const defaultSystemPrompt = "You are an expert in knowledge graph quality assessment. Answer concisely and precisely."

func resolveModel(req CompletionRequest, config Config, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	if config.Model != "" {
		return config.Model
	}
	return fallback
}

func resolveMaxTokens(req CompletionRequest, config Config) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if config.MaxTokens > 0 {
		return config.MaxTokens
	}
	return 1000
}

func resolveSystem(req CompletionRequest) string {
	if req.System != "" {
		return req.System
	}
	return defaultSystemPrompt
}
