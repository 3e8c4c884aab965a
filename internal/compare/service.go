package compare

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/kgframe/internal/model"
)

// Enhancer adds best-effort LLM output to a built comparison
type Enhancer interface {
	Enhance(ctx context.Context, frameworks []model.Framework, rows []model.Row) *model.Enhancement
}

// Service answers comparison requests
type Service struct {
	data     DataProvider
	registry *Registry
	matrix   *MatrixBuilder
	enhancer Enhancer
}

// NewService creates a comparison service. enhancer may be nil.
func NewService(data DataProvider, enhancer Enhancer) *Service {
	return &Service{
		data:     data,
		registry: NewRegistry(data),
		matrix:   NewMatrixBuilder(data),
		enhancer: enhancer,
	}
}

// ParseIDs keeps the positive integer ids in rawIDs, dropping duplicates
// and preserving first-seen order. Anything else is silently ignored.
func ParseIDs(rawIDs []string) []int64 {
	seen := make(map[int64]bool, len(rawIDs))
	ids := make([]int64, 0, len(rawIDs))
	for _, raw := range rawIDs {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || id <= 0 || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// Compare builds the comparison of the frameworks named by rawIDs.
// Invalid or unknown ids are dropped; the error is reserved for storage
// failures. LLM enhancement runs only when enableLLM is set, an enhancer
// is configured and at least one row exists.
func (s *Service) Compare(ctx context.Context, rawIDs []string, enableLLM bool) (*model.Comparison, error) {
	return s.CompareIDs(ctx, ParseIDs(rawIDs), enableLLM)
}

// CompareIDs is Compare for already-parsed ids
func (s *Service) CompareIDs(ctx context.Context, ids []int64, enableLLM bool) (*model.Comparison, error) {
	result := &model.Comparison{
		SelectedFrameworks: []model.Framework{},
		FrameworkDetails:   []model.FrameworkDetails{},
		Rows:               []model.Row{},
		Similarities:       []string{},
		Differences:        []model.Difference{},
	}
	if len(ids) == 0 {
		return result, nil
	}

	frameworks, err := s.data.FrameworksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load frameworks: %w", err)
	}
	if len(frameworks) == 0 {
		return result, nil
	}

	// registry walks the caller's order, restricted to frameworks that exist
	exists := make(map[int64]bool, len(frameworks))
	for _, fw := range frameworks {
		exists[fw.ID] = true
	}
	selected := make([]int64, 0, len(frameworks))
	for _, id := range ids {
		if exists[id] {
			selected = append(selected, id)
		}
	}

	names, refs, err := s.registry.Resolve(ctx, selected)
	if err != nil {
		return nil, err
	}

	rows, err := s.matrix.Build(ctx, names, frameworks)
	if err != nil {
		return nil, fmt.Errorf("build matrix: %w", err)
	}

	counts := make(map[int64]int, len(frameworks))
	for _, ref := range refs {
		counts[ref.FrameworkID]++
	}
	details := make([]model.FrameworkDetails, len(frameworks))
	for i, fw := range frameworks {
		details[i] = model.FrameworkDetails{Framework: fw, CriteriaCount: counts[fw.ID]}
	}

	result.SelectedFrameworks = frameworks
	result.FrameworkDetails = details
	result.Rows = rows
	result.Similarities, result.Differences = Classify(rows, len(frameworks))

	if enableLLM && s.enhancer != nil && len(rows) > 0 {
		result.LLMEnhancement = s.enhancer.Enhance(ctx, frameworks, rows)
	}
	return result, nil
}
