package llm

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := map[string]struct {
		a, b []float32
		want float32
	}{
		"identical":       {a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		"orthogonal":      {a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		"opposite":        {a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		"length mismatch": {a: []float32{1, 0}, b: []float32{1, 0, 0}, want: 0},
		"zero vector":     {a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		"empty":           {a: nil, b: nil, want: 0},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOllamaEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models": []}`))
		case "/api/embed":
			var req ollamaEmbedRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if req.Model != "nomic-embed-text" {
				t.Errorf("unexpected model %s", req.Model)
			}
			out := ollamaEmbedResponse{}
			for i := range req.Input {
				out.Embeddings = append(out.Embeddings, []float32{float32(i), 1})
			}
			_ = json.NewEncoder(w).Encode(out)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	e := NewOllamaEmbedder(server.URL+"/", "")
	ctx := context.Background()
	if !e.Available(ctx) {
		t.Fatal("expected embedder to be available")
	}

	vecs, err := e.Embed(ctx, []string{"Accuracy. Correct facts", "Timeliness. Fresh facts"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 || vecs[1][0] != 1 {
		t.Errorf("unexpected vectors: %v", vecs)
	}

	if vecs, err := e.Embed(ctx, nil); err != nil || vecs != nil {
		t.Errorf("expected nil for empty input, got %v %v", vecs, err)
	}
}

func TestOllamaEmbedder_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings": [[1, 0]]}`))
	}))
	defer server.Close()

	e := NewOllamaEmbedder(server.URL, "m")
	if _, err := e.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("expected error when the server returns fewer vectors")
	}
}

func TestOpenAIEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		// reversed order, index decides placement
		_, _ = w.Write([]byte(`{"object": "list", "data": [
			{"object": "embedding", "index": 1, "embedding": [0, 1]},
			{"object": "embedding", "index": 0, "embedding": [1, 0]}
		], "model": "text-embedding-3-small"}`))
	}))
	defer server.Close()

	e, err := NewOpenAIEmbedder("test-key", server.URL, "")
	if err != nil {
		t.Fatal(err)
	}
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("expected index-aligned vectors, got %v", vecs)
	}

	if _, err := NewOpenAIEmbedder("", "", ""); err == nil {
		t.Error("expected error without API key")
	}
}
