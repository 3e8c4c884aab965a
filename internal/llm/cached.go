package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ppiankov/kgframe/internal/cache"
	"github.com/ppiankov/kgframe/internal/logging"
)

// CachingProvider memoizes successful completions. Identical prompts on
// the same comparison return the stored text without a provider call.
type CachingProvider struct {
	inner Provider
	cache cache.Cache
	ttl   time.Duration
}

// NewCachingProvider wraps inner; a zero ttl uses the cache default
func NewCachingProvider(inner Provider, c cache.Cache, ttl time.Duration) *CachingProvider {
	return &CachingProvider{inner: inner, cache: c, ttl: ttl}
}

// Name returns the wrapped provider name
func (p *CachingProvider) Name() string {
	return p.inner.Name()
}

// IsAvailable is never cached
func (p *CachingProvider) IsAvailable(ctx context.Context) bool {
	return p.inner.IsAvailable(ctx)
}

// Complete returns a cached response or calls the wrapped provider
func (p *CachingProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	key := cache.Key("completion", p.inner.Name(), req.Model, req.System, req.Prompt, req.MaxTokens, req.Temperature)

	if data, ok := p.cache.Get(key); ok {
		var resp CompletionResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			logging.Debug("LLM cache hit", "provider", p.inner.Name())
			return &resp, nil
		}
	}

	resp, err := p.inner.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err == nil {
		if err := p.cache.Set(key, data, p.ttl); err != nil {
			logging.Warn("LLM cache write failed", "err", err)
		}
	}
	return resp, nil
}
