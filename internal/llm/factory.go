package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/kgframe/internal/cache"
	"github.com/ppiankov/kgframe/internal/logging"
	"github.com/ppiankov/kgframe/internal/model"
	"github.com/ppiankov/kgframe/internal/worker"
)

// Backend names beyond the provider names
const (
	BackendNone      = "none"
	BackendEmbedding = "embedding"
)

// Backend is the selected LLM capability set. Generator is nil for the
// embedding-only backend; Embedder is nil when no embedding service is
// configured and reachable.
type Backend struct {
	Name          string
	Generator     Provider
	FallbackModel string
	Embedder      Embedder
}

// Enabled reports whether any capability was selected
func (b *Backend) Enabled() bool {
	return b != nil && (b.Generator != nil || b.Embedder != nil)
}

// NoBackend is the backend used when nothing is configured or reachable
func NoBackend() *Backend {
	return &Backend{Name: BackendNone}
}

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "huggingface", "hf":
		return NewHuggingFaceProvider(config)

	case "":
		// No provider configured - return nil (LLM disabled)
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: huggingface, ollama, openai, anthropic)", config.Provider)
	}
}

// ConfigFor builds the provider config for name from the application config
func ConfigFor(name string, cfg model.LLMConfig) Config {
	c := DefaultConfig()
	c.Provider = name
	if cfg.Timeout > 0 {
		c.Timeout = cfg.Timeout
	}
	if cfg.MaxTokens > 0 {
		c.MaxTokens = cfg.MaxTokens
	}
	c.HTTPProxy = cfg.HTTPProxy
	c.HTTPSProxy = cfg.HTTPSProxy
	c.NoProxy = cfg.NoProxy

	p := providerSection(name, cfg)
	c.APIKey = p.APIKey
	c.BaseURL = p.BaseURL
	c.Model = p.Model
	return c
}

func providerSection(name string, cfg model.LLMConfig) model.ProviderConfig {
	switch strings.ToLower(name) {
	case "openai":
		return cfg.OpenAI
	case "anthropic", "claude":
		return cfg.Anthropic
	case "ollama":
		return cfg.Ollama
	case "huggingface", "hf":
		return cfg.HuggingFace
	}
	return model.ProviderConfig{}
}

// NewEmbedder creates the configured embedder, or nil when none is set
func NewEmbedder(cfg model.EmbeddingConfig) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "":
		return nil, nil
	case "ollama":
		return NewOllamaEmbedder(cfg.BaseURL, cfg.Model), nil
	case "openai":
		return NewOpenAIEmbedder(cfg.APIKey, cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: ollama, openai)", cfg.Provider)
	}
}

// Configured reports whether the declared configuration is enough to try
// backend name. openai needs allow_paid unless it is the forced provider.
func Configured(cfg model.Config, name string) bool {
	forced := strings.EqualFold(cfg.LLM.Provider, name)
	switch strings.ToLower(name) {
	case "huggingface":
		return cfg.LLM.HuggingFace.APIKey != ""
	case "ollama":
		return cfg.LLM.Ollama.BaseURL != "" && cfg.LLM.Ollama.Model != ""
	case BackendEmbedding:
		return cfg.Embedding.Provider != ""
	case "openai":
		return cfg.LLM.OpenAI.APIKey != "" && (cfg.LLM.AllowPaid || forced)
	case "anthropic":
		return cfg.LLM.Anthropic.APIKey != ""
	}
	return false
}

// Choose picks the first candidate that is configured and available.
// A forced name replaces the preference list. It returns BackendNone when
// nothing qualifies. available is only probed for configured candidates.
func Choose(forced string, preference []string, configured, available func(name string) bool) string {
	candidates := preference
	if forced != "" {
		candidates = []string{strings.ToLower(forced)}
	}
	for _, name := range candidates {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || !configured(name) {
			continue
		}
		if available(name) {
			return name
		}
		logging.Info("LLM backend configured but unavailable", "backend", name)
	}
	return BackendNone
}

// SelectBackend probes the configured backends once and builds the chosen
// one. Generators are throttled per provider and, when c is non-nil,
// cached. A generative backend also gets the embedder when that service is
// reachable.
func SelectBackend(ctx context.Context, cfg model.Config, c cache.Cache, limiter *worker.Limiter) *Backend {
	generators := map[string]Provider{}
	var embedder Embedder
	embedderProbed, embedderOK := false, false

	embedderAvailable := func() bool {
		if embedderProbed {
			return embedderOK
		}
		embedderProbed = true
		e, err := NewEmbedder(cfg.Embedding)
		if err != nil || e == nil {
			if err != nil {
				logging.Warn("embedding backend misconfigured", "err", err)
			}
			return false
		}
		embedder = e
		embedderOK = e.Available(ctx)
		return embedderOK
	}

	available := func(name string) bool {
		if name == BackendEmbedding {
			return embedderAvailable()
		}
		p, err := NewProvider(ConfigFor(name, cfg.LLM))
		if err != nil || p == nil {
			if err != nil {
				logging.Warn("LLM provider misconfigured", "provider", name, "err", err)
			}
			return false
		}
		if !p.IsAvailable(ctx) {
			return false
		}
		generators[name] = p
		return true
	}

	name := Choose(cfg.LLM.Provider, cfg.LLM.Preference, func(n string) bool { return Configured(cfg, n) }, available)
	if name == BackendNone {
		return NoBackend()
	}

	b := &Backend{Name: name}
	if name == BackendEmbedding {
		b.Embedder = embedder
		return b
	}

	var gen Provider = generators[name]
	if limiter != nil {
		gen = NewThrottledProvider(gen, limiter)
	}
	if c != nil {
		gen = NewCachingProvider(gen, c, time.Duration(cfg.Cache.DiskTTLSec)*time.Second)
	}
	b.Generator = gen
	b.FallbackModel = providerSection(name, cfg.LLM).FallbackModel

	if cfg.Embedding.Provider != "" && embedderAvailable() {
		b.Embedder = embedder
	}
	return b
}
