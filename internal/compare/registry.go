// Package compare builds side-by-side comparisons of quality frameworks.
package compare

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/kgframe/internal/model"
	"github.com/ppiankov/kgframe/internal/normalize"
)

// DataProvider is the storage surface the comparison engine reads from
type DataProvider interface {
	FrameworksByIDs(ctx context.Context, ids []int64) ([]model.Framework, error)
	CriterionNames(ctx context.Context, ids []int64) ([]model.CriterionRef, error)
	CriterionByName(ctx context.Context, frameworkID int64, name string) (*model.Criterion, error)
	DefinitionsFor(ctx context.Context, criterionID int64) ([]model.Definition, error)
}

// Registry produces the canonical criterion names of a framework set
type Registry struct {
	data DataProvider
}

// NewRegistry creates a registry over data
func NewRegistry(data DataProvider) *Registry {
	return &Registry{data: data}
}

// Names returns one display name per loose-equal group of criterion names
// across the frameworks in ids, sorted case-insensitively. The first form
// seen wins, visiting frameworks in ids order and criteria by (order, name).
func (r *Registry) Names(ctx context.Context, ids []int64) ([]string, error) {
	names, _, err := r.Resolve(ctx, ids)
	return names, err
}

// Resolve is Names that also returns the raw references it was built from
func (r *Registry) Resolve(ctx context.Context, ids []int64) ([]string, []model.CriterionRef, error) {
	if len(ids) == 0 {
		return []string{}, nil, nil
	}
	refs, err := r.data.CriterionNames(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load criterion names: %w", err)
	}
	return canonicalNames(ids, refs), refs, nil
}

func canonicalNames(ids []int64, refs []model.CriterionRef) []string {
	byFramework := make(map[int64][]model.CriterionRef, len(ids))
	for _, ref := range refs {
		byFramework[ref.FrameworkID] = append(byFramework[ref.FrameworkID], ref)
	}

	seen := make(map[string]bool)
	names := []string{}
	for _, id := range ids {
		group := byFramework[id]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Order != group[j].Order {
				return group[i].Order < group[j].Order
			}
			return group[i].Name < group[j].Name
		})
		for _, ref := range group {
			key := normalize.Loose(ref.Name)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			names = append(names, normalize.CriterionName(ref.Name))
		}
	}

	sort.SliceStable(names, func(i, j int) bool {
		li, lj := strings.ToLower(names[i]), strings.ToLower(names[j])
		if li != lj {
			return li < lj
		}
		return names[i] < names[j]
	})
	return names
}
