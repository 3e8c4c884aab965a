package llm

import (
	"context"
	"fmt"

	"github.com/ppiankov/kgframe/internal/worker"
)

// ThrottledProvider waits on a per-provider rate limit before each call
type ThrottledProvider struct {
	inner   Provider
	limiter *worker.Limiter
}

// NewThrottledProvider wraps inner with limiter keyed by the provider name
func NewThrottledProvider(inner Provider, limiter *worker.Limiter) *ThrottledProvider {
	return &ThrottledProvider{inner: inner, limiter: limiter}
}

// Name returns the wrapped provider name
func (p *ThrottledProvider) Name() string {
	return p.inner.Name()
}

// IsAvailable checks the wrapped provider
func (p *ThrottledProvider) IsAvailable(ctx context.Context) bool {
	return p.inner.IsAvailable(ctx)
}

// Complete waits for the limiter, then calls the wrapped provider
func (p *ThrottledProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := p.limiter.Wait(ctx, p.inner.Name()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return p.inner.Complete(ctx, req)
}
