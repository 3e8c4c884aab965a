package enhance

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/kgframe/internal/logging"
	"github.com/ppiankov/kgframe/internal/model"
	"github.com/ppiankov/kgframe/internal/normalize"
	"github.com/ppiankov/kgframe/internal/store"
)

// abstractMarkers flag descriptions copied from a paper abstract
var abstractMarkers = []string{"Vision paper", "Introduces", "This paper", "We propose", "We introduce"}

// IsWeakDescription reports whether a stored description should be
// rewritten: empty, shorter than 30 chars, or lifted from an abstract
func IsWeakDescription(desc string) bool {
	desc = strings.TrimSpace(desc)
	if len(desc) < 30 {
		return true
	}
	if strings.Contains(strings.ToLower(desc), "addressing challenges") {
		return true
	}
	for _, m := range abstractMarkers {
		if strings.Contains(desc, m) {
			return true
		}
	}
	return false
}

// DescriptionStore is the storage the describe run reads and updates
type DescriptionStore interface {
	CriteriaMatching(ctx context.Context, frameworkFilter, criterionFilter string) ([]store.CriterionWithFramework, error)
	DefinitionsFor(ctx context.Context, criterionID int64) ([]model.Definition, error)
	SharedDescriptionCriteria(ctx context.Context, frameworkFilter, criterionFilter string, maxLen int) ([]store.CriterionWithFramework, error)
	UpdateCriterionDescription(ctx context.Context, id int64, description string) error
}

// sharedDescriptionMax bounds the descriptions --shared treats as generic
// copies; longer shared text is assumed to be deliberate.
const sharedDescriptionMax = 200

// DescribeOptions filters and controls a describe run
type DescribeOptions struct {
	Framework string // substring of the framework name
	Criterion string // substring of the criterion name
	Force     bool   // rewrite even good descriptions
	Shared    bool   // target only descriptions copied verbatim across frameworks
	DryRun    bool
}

// DescribeChange is one proposed or applied rewrite
type DescribeChange struct {
	Framework string
	Criterion string
	Before    string
	After     string
}

// DescribeStats summarizes a describe run
type DescribeStats struct {
	Updated int
	Skipped int
	Errors  int
	Changes []DescribeChange
}

// Describe rewrites weak criterion descriptions in place. With Shared it
// instead rewrites every criterion whose name and description are repeated
// verbatim in another row, so each framework gets its own wording.
func (o *Orchestrator) Describe(ctx context.Context, s DescriptionStore, opts DescribeOptions) (DescribeStats, error) {
	var stats DescribeStats
	if o.backend.Generator == nil {
		return stats, fmt.Errorf("no text generator available (backend %s)", o.backend.Name)
	}

	var items []store.CriterionWithFramework
	var err error
	if opts.Shared {
		items, err = s.SharedDescriptionCriteria(ctx, opts.Framework, opts.Criterion, sharedDescriptionMax)
	} else {
		items, err = s.CriteriaMatching(ctx, opts.Framework, opts.Criterion)
	}
	if err != nil {
		return stats, fmt.Errorf("list criteria: %w", err)
	}

	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		current := strings.TrimSpace(it.Criterion.Description)
		if !opts.Force && !opts.Shared && !IsWeakDescription(current) {
			stats.Skipped++
			continue
		}

		defs, err := s.DefinitionsFor(ctx, it.Criterion.ID)
		if err != nil {
			return stats, fmt.Errorf("definitions for %s: %w", it.Criterion.Name, err)
		}
		texts := make([]string, 0, len(defs))
		for _, d := range defs {
			texts = append(texts, d.DefinitionText)
		}
		cell := model.Cell{
			Present:     true,
			Description: current,
			Category:    it.Criterion.Category,
			Definitions: firstN(normalize.CollapseDefinitions(texts), 3),
		}

		name := strings.TrimSpace(it.Criterion.Name)
		text, err := o.RewriteDescription(ctx, it.Framework, name, cell)
		if err != nil {
			stats.Errors++
			logging.Warn("description rewrite failed", "framework", it.Framework.Name, "criterion", name, "err", err)
			continue
		}

		if !opts.DryRun {
			if err := s.UpdateCriterionDescription(ctx, it.Criterion.ID, text); err != nil {
				return stats, fmt.Errorf("update %s: %w", name, err)
			}
		}
		stats.Updated++
		stats.Changes = append(stats.Changes, DescribeChange{
			Framework: it.Framework.Name,
			Criterion: name,
			Before:    current,
			After:     text,
		})
	}
	return stats, nil
}
