package enhance

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/kgframe/internal/llm"
	"github.com/ppiankov/kgframe/internal/model"
	"github.com/ppiankov/kgframe/internal/worker"
)

// minRewriteChars is the shortest reply accepted as a description
const minRewriteChars = 20

type cellTask struct {
	key       cellKey
	framework model.Framework
	cell      model.Cell
}

// rewriteCells asks for a framework-specific description of every present
// cell. Calls fan out over a worker pool; each failure only loses its own
// cell and results are keyed by (criterion, framework index).
func (r *run) rewriteCells(frameworks []model.Framework, rows []model.Row) map[cellKey]string {
	out := map[cellKey]string{}
	if r.o.backend.Generator == nil {
		return out
	}

	var tasks []cellTask
	for _, row := range rows {
		for j, c := range row.Cells {
			if !c.Present || j >= len(frameworks) {
				continue
			}
			tasks = append(tasks, cellTask{
				key:       cellKey{row.CriterionName, j},
				framework: frameworks[j],
				cell:      c,
			})
		}
	}
	if len(tasks) == 0 {
		return out
	}

	outcomes := worker.Map(r.ctx, r.o.workers, tasks, func(ctx context.Context, t cellTask) (string, error) {
		return r.o.rewrite(ctx, t.key.criterion, t.framework, t.cell)
	})

	failures := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failures++
			r.log.Debug("description rewrite failed", "criterion", o.Input.key.criterion, "framework", o.Input.framework.Name, "err", o.Err)
			continue
		}
		out[o.Input.key] = o.Value
	}
	r.log.Info("descriptions rewritten", "ok", len(out), "failed", failures, "total", len(tasks))
	return out
}

// RewriteDescription produces a framework-specific description for one
// criterion, trying the backend's fallback model once if the primary fails
func (o *Orchestrator) RewriteDescription(ctx context.Context, fw model.Framework, criterion string, cell model.Cell) (string, error) {
	if o.backend.Generator == nil {
		return "", fmt.Errorf("backend %s cannot generate text", o.backend.Name)
	}
	return o.rewrite(ctx, criterion, fw, cell)
}

func (o *Orchestrator) rewrite(ctx context.Context, criterion string, fw model.Framework, cell model.Cell) (string, error) {
	req := llm.CompletionRequest{
		System:      fmt.Sprintf("You are an expert in knowledge graph quality frameworks. Provide framework-specific descriptions for criteria as used in %s.", fw.Name),
		Prompt:      rewritePrompt(criterion, fw, cell),
		MaxTokens:   150,
		Temperature: 0.4,
	}

	text, err := o.rewriteOnce(ctx, req)
	if err == nil {
		return text, nil
	}
	if o.backend.FallbackModel == "" {
		return "", err
	}

	req.Model = o.backend.FallbackModel
	text, fallbackErr := o.rewriteOnce(ctx, req)
	if fallbackErr != nil {
		return "", fmt.Errorf("primary: %v; fallback %s: %w", err, o.backend.FallbackModel, fallbackErr)
	}
	return text, nil
}

func (o *Orchestrator) rewriteOnce(ctx context.Context, req llm.CompletionRequest) (string, error) {
	resp, err := o.backend.Generator.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	text := strings.Trim(strings.TrimSpace(resp.Text), `"`)
	if len(text) < minRewriteChars {
		return "", fmt.Errorf("reply too short (%d chars)", len(text))
	}
	return text, nil
}

func rewritePrompt(criterion string, fw model.Framework, cell model.Cell) string {
	var ctxLines strings.Builder
	fmt.Fprintf(&ctxLines, "Framework: %s", fw.Name)
	if fw.Year != nil {
		fmt.Fprintf(&ctxLines, " (%d)", *fw.Year)
	}
	if cell.Category != "" {
		fmt.Fprintf(&ctxLines, "\nCategory: %s", cell.Category)
	}
	if cell.Description != "" {
		fmt.Fprintf(&ctxLines, "\nOriginal description: %s", cell.Description)
	}
	if len(cell.Definitions) > 0 {
		fmt.Fprintf(&ctxLines, "\nDefinitions in this framework: %s", strings.Join(firstN(cell.Definitions, 2), "; "))
	}

	return fmt.Sprintf(`You are analyzing knowledge graph quality frameworks. Provide a clear, comprehensive 2-3 sentence description of the criterion %q SPECIFICALLY as it is used in the framework %q.

%s

IMPORTANT: Your description must be specific to how %s defines and uses this criterion. Do not provide a generic description. Focus on:
1. How THIS SPECIFIC FRAMEWORK (%s) defines or measures this criterion
2. What makes this criterion's interpretation unique or notable in %s
3. The practical significance of this criterion within %s's approach

Return only the description text, no markdown, no labels, no quotes.`,
		criterion, fw.Name, ctxLines.String(), fw.Name, fw.Name, fw.Name, fw.Name)
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
