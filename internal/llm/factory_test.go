package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/kgframe/internal/cache"
	"github.com/ppiankov/kgframe/internal/model"
	"github.com/ppiankov/kgframe/internal/worker"
)

func TestChoose(t *testing.T) {
	pref := []string{"huggingface", "ollama", "embedding", "openai", "anthropic"}
	tests := map[string]struct {
		forced     string
		configured []string
		available  []string
		want       string
		wantProbes []string
	}{
		"first configured and available": {
			configured: []string{"ollama", "openai"},
			available:  []string{"ollama", "openai"},
			want:       "ollama",
			wantProbes: []string{"ollama"},
		},
		"skips unavailable": {
			configured: []string{"huggingface", "embedding"},
			available:  []string{"embedding"},
			want:       "embedding",
			wantProbes: []string{"huggingface", "embedding"},
		},
		"nothing configured": {
			want: BackendNone,
		},
		"forced wins over preference": {
			forced:     "Anthropic",
			configured: []string{"huggingface", "anthropic"},
			available:  []string{"huggingface", "anthropic"},
			want:       "anthropic",
			wantProbes: []string{"anthropic"},
		},
		"forced but unavailable": {
			forced:     "openai",
			configured: []string{"openai", "ollama"},
			available:  []string{"ollama"},
			want:       BackendNone,
			wantProbes: []string{"openai"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var probes []string
			in := func(list []string) func(string) bool {
				return func(n string) bool {
					for _, v := range list {
						if v == n {
							return true
						}
					}
					return false
				}
			}
			isAvailable := in(tt.available)
			got := Choose(tt.forced, pref, in(tt.configured), func(n string) bool {
				probes = append(probes, n)
				return isAvailable(n)
			})
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
			if !reflect.DeepEqual(probes, tt.wantProbes) {
				t.Errorf("probes = %v, want %v", probes, tt.wantProbes)
			}
		})
	}
}

func TestConfigured(t *testing.T) {
	cfg := model.Config{}
	cfg.LLM.OpenAI.APIKey = "sk"
	if Configured(cfg, "openai") {
		t.Error("openai should need allow_paid when not forced")
	}
	cfg.LLM.Provider = "openai"
	if !Configured(cfg, "openai") {
		t.Error("forced openai should not need allow_paid")
	}
	cfg.LLM.Provider = ""
	cfg.LLM.AllowPaid = true
	if !Configured(cfg, "openai") {
		t.Error("openai with allow_paid should be configured")
	}

	if Configured(cfg, "ollama") {
		t.Error("ollama without base url should not be configured")
	}
	cfg.LLM.Ollama = model.ProviderConfig{BaseURL: "http://localhost:11434", Model: "llama3.1"}
	if !Configured(cfg, "ollama") {
		t.Error("ollama with base url and model should be configured")
	}
	if Configured(cfg, BackendEmbedding) {
		t.Error("embedding without provider should not be configured")
	}
	if Configured(cfg, "gemini") {
		t.Error("unknown backend should not be configured")
	}
}

func ollamaServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models": []}`))
		case "/api/generate":
			_, _ = w.Write([]byte(`{"model": "llama3.1", "response": "ok", "done": true}`))
		case "/api/embed":
			_, _ = w.Write([]byte(`{"embeddings": [[1, 0]]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestSelectBackend(t *testing.T) {
	server := ollamaServer(t)
	defer server.Close()

	t.Run("nothing configured", func(t *testing.T) {
		cfg := model.DefaultConfig()
		cfg.LLM.Ollama = model.ProviderConfig{}
		cfg.Embedding = model.EmbeddingConfig{}
		b := SelectBackend(context.Background(), cfg, nil, nil)
		if b.Name != BackendNone || b.Enabled() {
			t.Errorf("expected none backend, got %+v", b)
		}
	})

	t.Run("ollama with embeddings", func(t *testing.T) {
		cfg := model.DefaultConfig()
		cfg.LLM.Ollama = model.ProviderConfig{BaseURL: server.URL, Model: "llama3.1", FallbackModel: "mistral"}
		cfg.Embedding = model.EmbeddingConfig{Provider: "ollama", BaseURL: server.URL}
		b := SelectBackend(context.Background(), cfg, cache.NewMemoryCache(time.Minute, time.Minute), worker.NewLimiter(0, 1))
		if b.Name != "ollama" {
			t.Fatalf("expected ollama, got %s", b.Name)
		}
		if b.Generator == nil || b.Embedder == nil {
			t.Errorf("expected generator and embedder, got %+v", b)
		}
		if b.FallbackModel != "mistral" {
			t.Errorf("expected fallback model mistral, got %s", b.FallbackModel)
		}
		resp, err := b.Generator.Complete(context.Background(), CompletionRequest{Prompt: "x"})
		if err != nil || resp.Text != "ok" {
			t.Errorf("unexpected completion %+v %v", resp, err)
		}
	})

	t.Run("embedding only", func(t *testing.T) {
		cfg := model.DefaultConfig()
		cfg.LLM.Ollama = model.ProviderConfig{}
		cfg.Embedding = model.EmbeddingConfig{Provider: "ollama", BaseURL: server.URL}
		b := SelectBackend(context.Background(), cfg, nil, nil)
		if b.Name != BackendEmbedding || b.Generator != nil || b.Embedder == nil {
			t.Errorf("expected embedding-only backend, got %+v", b)
		}
	})
}

type countingProvider struct {
	calls int32
	err   error
}

func (p *countingProvider) Name() string                       { return "counting" }
func (p *countingProvider) IsAvailable(ctx context.Context) bool { return true }
func (p *countingProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.err != nil {
		return nil, p.err
	}
	return &CompletionResponse{Text: "answer to " + req.Prompt, Model: "m"}, nil
}

func TestCachingProvider(t *testing.T) {
	inner := &countingProvider{}
	p := NewCachingProvider(inner, cache.NewMemoryCache(time.Minute, time.Minute), 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		resp, err := p.Complete(ctx, CompletionRequest{Prompt: "q", MaxTokens: 150})
		if err != nil || resp.Text != "answer to q" {
			t.Fatalf("unexpected response %+v %v", resp, err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", inner.calls)
	}

	if _, err := p.Complete(ctx, CompletionRequest{Prompt: "q", MaxTokens: 200}); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Errorf("expected a different request to miss, got %d calls", inner.calls)
	}
}

func TestCachingProvider_ErrorsNotCached(t *testing.T) {
	inner := &countingProvider{err: errors.New("down")}
	p := NewCachingProvider(inner, cache.NewMemoryCache(time.Minute, time.Minute), 0)

	for i := 0; i < 2; i++ {
		if _, err := p.Complete(context.Background(), CompletionRequest{Prompt: "q"}); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.calls != 2 {
		t.Errorf("expected errors to bypass the cache, got %d calls", inner.calls)
	}
}

func TestThrottledProvider(t *testing.T) {
	inner := &countingProvider{}
	limiter := worker.NewLimiter(0.01, 1)
	p := NewThrottledProvider(inner, limiter)

	if _, err := p.Complete(context.Background(), CompletionRequest{Prompt: "q"}); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Complete(ctx, CompletionRequest{Prompt: "q"}); err == nil {
		t.Error("expected the second call to hit the rate limit deadline")
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", inner.calls)
	}
}
