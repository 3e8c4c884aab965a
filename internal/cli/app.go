package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/kgframe/internal/cache"
	"github.com/ppiankov/kgframe/internal/compare"
	"github.com/ppiankov/kgframe/internal/enhance"
	"github.com/ppiankov/kgframe/internal/llm"
	"github.com/ppiankov/kgframe/internal/logging"
	"github.com/ppiankov/kgframe/internal/model"
	"github.com/ppiankov/kgframe/internal/store"
	"github.com/ppiankov/kgframe/internal/worker"
)

// openStore opens the configured database
func openStore(c model.Config) (*store.Store, error) {
	s, err := store.Open(c.Storage.Path, c.Storage.BusyTimeoutMS)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", c.Storage.Path, err)
	}
	return s, nil
}

// selectBackend probes providers once. Disabled LLM config yields the
// "none" backend without any network traffic.
func selectBackend(ctx context.Context, c model.Config) *llm.Backend {
	if !c.LLM.Enabled {
		return llm.NoBackend()
	}

	var responses cache.Cache
	if c.Cache.Enabled {
		responses = cache.New(c.Cache.Dir,
			time.Duration(c.Cache.MemoryTTLSec)*time.Second,
			time.Duration(c.Cache.DiskTTLSec)*time.Second)
	}
	limiter := worker.NewLimiter(c.RateLimiting.RequestsPerSecond, c.RateLimiting.BurstSize)

	b := llm.SelectBackend(ctx, c, responses, limiter)
	logging.Info("LLM backend selected", "backend", b.Name)
	return b
}

// newOrchestrator wires the selected backend into an orchestrator
func newOrchestrator(ctx context.Context, c model.Config) *enhance.Orchestrator {
	return enhance.New(selectBackend(ctx, c), c.Concurrency.LLMWorkers)
}

// newCompareService builds the comparison service over s. The
// orchestrator may be nil, which disables enhancement.
func newCompareService(s *store.Store, o *enhance.Orchestrator) *compare.Service {
	if o == nil {
		return compare.NewService(s, nil)
	}
	return compare.NewService(s, o)
}
