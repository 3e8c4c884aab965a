// Package dedup merges duplicate frameworks, criteria and definitions that
// accumulate from repeated imports. A run is one transaction: it either
// applies every merge or none.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ppiankov/kgframe/internal/logging"
	"github.com/ppiankov/kgframe/internal/model"
	"github.com/ppiankov/kgframe/internal/normalize"
	"github.com/ppiankov/kgframe/internal/store"
)

// Stats counts the rows a run merged or removed
type Stats struct {
	FrameworksMerged   int  `json:"frameworks_merged"`
	CriteriaMerged     int  `json:"criteria_merged"`
	DefinitionsRemoved int  `json:"definitions_removed"`
	DryRun             bool `json:"dry_run"`
}

// Total is the number of rows a run touched
func (s Stats) Total() int {
	return s.FrameworksMerged + s.CriteriaMerged + s.DefinitionsRemoved
}

var errDryRun = errors.New("dry run")

// Run deduplicates the catalog. With dryRun the transaction is rolled back
// after counting.
func Run(ctx context.Context, s *store.Store, dryRun bool) (Stats, error) {
	stats := Stats{DryRun: dryRun}
	err := s.WithTx(ctx, func(tx *store.Tx) error {
		n, err := mergeFrameworks(ctx, tx)
		if err != nil {
			return err
		}
		stats.FrameworksMerged = n

		if n, err = mergeCriteria(ctx, tx); err != nil {
			return err
		}
		stats.CriteriaMerged = n

		if n, err = removeDefinitions(ctx, tx); err != nil {
			return err
		}
		stats.DefinitionsRemoved = n

		if dryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return Stats{DryRun: dryRun}, err
	}

	logging.Info("Dedup finished",
		"frameworks", stats.FrameworksMerged,
		"criteria", stats.CriteriaMerged,
		"definitions", stats.DefinitionsRemoved,
		"dry_run", dryRun)
	return stats, nil
}

// index groups a snapshot by owner
type index struct {
	criteria    map[int64][]model.Criterion
	definitions map[int64][]model.Definition
}

func buildIndex(snap *model.Snapshot) index {
	idx := index{
		criteria:    make(map[int64][]model.Criterion),
		definitions: make(map[int64][]model.Definition),
	}
	for _, c := range snap.Criteria {
		idx.criteria[c.FrameworkID] = append(idx.criteria[c.FrameworkID], c)
	}
	for _, d := range snap.Definitions {
		idx.definitions[d.CriterionID] = append(idx.definitions[d.CriterionID], d)
	}
	return idx
}

// mergeFrameworks folds frameworks sharing a loose name into the oldest one
func mergeFrameworks(ctx context.Context, tx *store.Tx) (int, error) {
	snap, err := tx.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	idx := buildIndex(snap)

	groups := make(map[string][]model.Framework)
	var keys []string
	for _, f := range snap.Frameworks {
		k := normalize.Loose(f.Name)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], f)
	}

	merged := 0
	for _, k := range keys {
		group := groups[k]
		if len(group) < 2 {
			continue
		}
		sortFrameworks(group)
		primary := group[0]

		owned := make(map[string]model.Criterion)
		for _, c := range idx.criteria[primary.ID] {
			ck := normalize.Loose(c.Name)
			if _, ok := owned[ck]; !ok {
				owned[ck] = c
			}
		}

		for _, dup := range group[1:] {
			primary = mergeFrameworkFields(primary, dup)
			for _, c := range idx.criteria[dup.ID] {
				ck := normalize.Loose(c.Name)
				target, ok := owned[ck]
				if !ok {
					c.FrameworkID = primary.ID
					if err := tx.UpdateCriterion(ctx, c); err != nil {
						return 0, err
					}
					owned[ck] = c
					continue
				}
				target, err := absorbCriterion(ctx, tx, target, c, idx)
				if err != nil {
					return 0, err
				}
				owned[ck] = target
			}
			if err := tx.DeleteFramework(ctx, dup.ID); err != nil {
				return 0, err
			}
			logging.Debug("Merged framework", "into", primary.ID, "from", dup.ID, "name", dup.Name)
			merged++
		}
		if err := tx.UpdateFramework(ctx, primary); err != nil {
			return 0, err
		}
	}
	return merged, nil
}

// mergeCriteria folds criteria of one framework sharing a loose name
func mergeCriteria(ctx context.Context, tx *store.Tx) (int, error) {
	snap, err := tx.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	idx := buildIndex(snap)

	merged := 0
	for _, f := range snap.Frameworks {
		groups := make(map[string][]model.Criterion)
		var keys []string
		for _, c := range idx.criteria[f.ID] {
			k := normalize.Loose(c.Name)
			if _, ok := groups[k]; !ok {
				keys = append(keys, k)
			}
			groups[k] = append(groups[k], c)
		}

		for _, k := range keys {
			group := groups[k]
			if len(group) < 2 {
				continue
			}
			sortCriteria(group)
			primary := group[0]
			for _, dup := range group[1:] {
				if primary, err = absorbCriterion(ctx, tx, primary, dup, idx); err != nil {
					return 0, err
				}
				merged++
			}
			// the unique (framework, name) slot is free only once the others are gone
			primary.Name = normalize.CriterionName(primary.Name)
			if err := tx.UpdateCriterion(ctx, primary); err != nil {
				return 0, err
			}
		}
	}
	return merged, nil
}

// removeDefinitions drops exact and near-substring duplicates per criterion
func removeDefinitions(ctx context.Context, tx *store.Tx) (int, error) {
	snap, err := tx.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	idx := buildIndex(snap)

	removed := 0
	for _, c := range snap.Criteria {
		defs := idx.definitions[c.ID]
		if len(defs) < 2 {
			continue
		}
		texts := make([]string, len(defs))
		for i, d := range defs {
			texts[i] = d.DefinitionText
		}
		for _, i := range normalize.RedundantIndexes(texts) {
			if err := tx.DeleteDefinition(ctx, defs[i].ID); err != nil {
				return 0, err
			}
			removed++
		}
	}
	return removed, nil
}

// absorbCriterion merges dup into target and deletes dup. Definitions move
// over unless target already has the same text.
func absorbCriterion(ctx context.Context, tx *store.Tx, target, dup model.Criterion, idx index) (model.Criterion, error) {
	if len(dup.Description) > len(target.Description) {
		target.Description = dup.Description
	}
	if target.Category == "" {
		target.Category = dup.Category
	}
	if err := tx.UpdateCriterion(ctx, target); err != nil {
		return target, err
	}

	have := make(map[string]bool)
	for _, d := range idx.definitions[target.ID] {
		have[d.DefinitionText] = true
	}
	for _, d := range idx.definitions[dup.ID] {
		if have[d.DefinitionText] {
			continue
		}
		if err := tx.MoveDefinition(ctx, d.ID, target.ID); err != nil {
			return target, err
		}
		have[d.DefinitionText] = true
		d.CriterionID = target.ID
		idx.definitions[target.ID] = append(idx.definitions[target.ID], d)
	}
	delete(idx.definitions, dup.ID)

	if err := tx.DeleteCriterion(ctx, dup.ID); err != nil {
		return target, fmt.Errorf("merge criterion %q: %w", dup.Name, err)
	}
	return target, nil
}

// mergeFrameworkFields fills the primary's gaps from dup; for the long
// prose fields the longer text wins
func mergeFrameworkFields(primary, dup model.Framework) model.Framework {
	longer := func(dst *string, src string) {
		if len(src) > len(*dst) {
			*dst = src
		}
	}
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	longer(&primary.Description, dup.Description)
	longer(&primary.Objectives, dup.Objectives)
	longer(&primary.Methodology, dup.Methodology)
	longer(&primary.Advantages, dup.Advantages)
	longer(&primary.Drawbacks, dup.Drawbacks)
	fill(&primary.Authors, dup.Authors)
	fill(&primary.Title, dup.Title)
	fill(&primary.AlgorithmUsed, dup.AlgorithmUsed)
	fill(&primary.TopModel, dup.TopModel)
	fill(&primary.Accuracy, dup.Accuracy)
	fill(&primary.Source, dup.Source)
	if primary.Year == nil && dup.Year != nil {
		y := *dup.Year
		primary.Year = &y
	}
	return primary
}

// sortFrameworks puts the surviving framework first: oldest, then most
// complete, then lowest id
func sortFrameworks(fs []model.Framework) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if ca, cb := a.Completeness(), b.Completeness(); ca != cb {
			return ca > cb
		}
		return a.ID < b.ID
	})
}

func sortCriteria(cs []model.Criterion) {
	score := func(c model.Criterion) int {
		n := 0
		if c.Description != "" {
			n++
		}
		if c.Category != "" {
			n++
		}
		return n
	}
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if sa, sb := score(a), score(b); sa != sb {
			return sa > sb
		}
		return a.ID < b.ID
	})
}
