package enhance

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/ppiankov/kgframe/internal/llm"
)

// run carries per-invocation state shared by the steps
type run struct {
	o   *Orchestrator
	ctx context.Context
	log *log.Logger

	vectors   [][]float32
	embedDone bool
}

// complete sends one prompt to the generator and returns trimmed text
func (r *run) complete(req llm.CompletionRequest) (string, error) {
	gen := r.o.backend.Generator
	if gen == nil {
		return "", fmt.Errorf("backend %s has no text generator", r.o.backend.Name)
	}
	resp, err := gen.Complete(r.ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// text is complete for optional free-text steps: failures are logged at
// warn and yield ""
func (r *run) text(step string, req llm.CompletionRequest) string {
	out, err := r.complete(req)
	if err != nil {
		r.log.Warn("LLM step failed", "step", step, "err", err)
		return ""
	}
	return out
}

// embed embeds "name. description" per criterion once per run
func (r *run) embed(criteria []criterionText) [][]float32 {
	if r.embedDone {
		return r.vectors
	}
	r.embedDone = true

	texts := make([]string, len(criteria))
	for i, c := range criteria {
		texts[i] = c.Name
		if c.Description != "" {
			texts[i] = c.Name + ". " + c.Description
		}
	}
	vecs, err := r.o.backend.Embedder.Embed(r.ctx, texts)
	if err != nil {
		r.log.Warn("embedding failed", "err", err)
		return nil
	}
	if len(vecs) != len(criteria) {
		r.log.Warn("embedding count mismatch", "want", len(criteria), "got", len(vecs))
		return nil
	}
	r.vectors = vecs
	return vecs
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
