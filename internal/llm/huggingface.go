package llm

import "fmt"

// HuggingFaceRouterURL is the OpenAI-compatible inference router
const HuggingFaceRouterURL = "https://router.huggingface.co/v1"

// NewHuggingFaceProvider creates a provider for Hugging Face hosted
// inference. The router accepts OpenAI chat requests, so it reuses the
// OpenAI client with a different base URL and token.
func NewHuggingFaceProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Hugging Face API token is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = HuggingFaceRouterURL
	}
	if config.Model == "" {
		config.Model = "meta-llama/Llama-3.1-8B-Instruct"
	}
	return newOpenAICompatible("huggingface", config), nil
}
