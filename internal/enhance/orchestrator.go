// Package enhance layers optional LLM annotations onto a comparison matrix.
// Every step is best effort: a failure empties that step's output and the
// base comparison is always returned intact.
package enhance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/kgframe/internal/llm"
	"github.com/ppiankov/kgframe/internal/logging"
	"github.com/ppiankov/kgframe/internal/model"
)

// ErrNoBackend is reported on enhancements requested without any backend
var ErrNoBackend = errors.New("no LLM backend available")

// Orchestrator runs the enhancement steps against one selected backend
type Orchestrator struct {
	backend *llm.Backend
	workers int
}

// New creates an orchestrator; a nil backend behaves like "none"
func New(backend *llm.Backend, workers int) *Orchestrator {
	if backend == nil {
		backend = llm.NoBackend()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Orchestrator{backend: backend, workers: workers}
}

// Backend returns the injected backend
func (o *Orchestrator) Backend() *llm.Backend {
	return o.backend
}

// cellKey identifies one matrix cell independent of completion order
type cellKey struct {
	criterion string
	framework int
}

// Enhance annotates rows for frameworks (index-aligned with each row's
// cells). rows is never modified; the result carries a deep copy.
func (o *Orchestrator) Enhance(ctx context.Context, frameworks []model.Framework, rows []model.Row) (result *model.Enhancement) {
	result = model.NewEnhancement(o.backend.Name, rows)
	if !o.backend.Enabled() {
		logging.Warn("no LLM backend available, skipping enhancement")
		result.Error = ErrNoBackend.Error()
		return result
	}

	runID := uuid.NewString()
	start := time.Now()
	log := logging.WithPrefix("enhance").With("run", runID, "provider", o.backend.Name)

	defer func() {
		if r := recover(); r != nil {
			log.Error("enhancement failed", "err", r, "elapsed", time.Since(start))
			result = failed(o.backend.Name, runID, rows, fmt.Sprintf("enhancement panicked: %v", r))
		}
	}()

	log.Info("enhancement started", "criteria", len(rows), "frameworks", len(frameworks))

	criteria := criteriaOf(rows)
	r := &run{o: o, ctx: ctx, log: log}

	sims := r.similarities(criteria)
	log.Info("semantic similarities found", "count", len(sims))

	rewrites := r.rewriteCells(frameworks, rows)
	summaries, insights := r.summarize(frameworks, rows)
	groups := r.group(criteria)
	overall := r.overall(frameworks, rows, len(sims))

	if err := ctx.Err(); err != nil {
		log.Error("enhancement aborted", "err", err)
		return failed(o.backend.Name, runID, rows, err.Error())
	}

	out := model.CloneRows(rows)
	for i := range out {
		for j := range out[i].Cells {
			if text, ok := rewrites[cellKey{out[i].CriterionName, j}]; ok {
				out[i].Cells[j].LLMDescription = text
				out[i].Cells[j].HasLLMEnhancement = true
			}
		}
	}

	log.Info("enhancement completed",
		"elapsed", time.Since(start),
		"rewrites", len(rewrites),
		"summaries", len(summaries),
		"insights", len(insights),
		"groups", len(groups))

	return &model.Enhancement{
		Enhanced:             true,
		Provider:             o.backend.Name,
		RunID:                runID,
		Rows:                 out,
		SemanticSimilarities: sims,
		Summaries:            summaries,
		Insights:             insights,
		Groups:               groups,
		OverallInsight:       overall,
	}
}

func failed(provider, runID string, rows []model.Row, msg string) *model.Enhancement {
	e := model.NewEnhancement(provider, rows)
	e.RunID = runID
	e.Error = msg
	return e
}

// criterionText is one criterion as seen by similarity and grouping
type criterionText struct {
	Name        string
	Description string
}

// criteriaOf takes each row's first present description, falling back to
// its first definition
func criteriaOf(rows []model.Row) []criterionText {
	out := make([]criterionText, 0, len(rows))
	for _, row := range rows {
		ct := criterionText{Name: row.CriterionName}
		for _, c := range row.Cells {
			if !c.Present {
				continue
			}
			if c.Description != "" {
				ct.Description = c.Description
				break
			}
			if ct.Description == "" && len(c.Definitions) > 0 {
				ct.Description = c.Definitions[0]
			}
		}
		out = append(out, ct)
	}
	return out
}
