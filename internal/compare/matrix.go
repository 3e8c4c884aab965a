package compare

import (
	"context"
	"fmt"

	"github.com/ppiankov/kgframe/internal/model"
	"github.com/ppiankov/kgframe/internal/normalize"
)

// MatrixBuilder lays criteria out against frameworks
type MatrixBuilder struct {
	data DataProvider
}

// NewMatrixBuilder creates a builder over data
func NewMatrixBuilder(data DataProvider) *MatrixBuilder {
	return &MatrixBuilder{data: data}
}

// Build returns one row per name with one cell per framework, in the
// order given. It reads only; building twice yields the same rows.
func (b *MatrixBuilder) Build(ctx context.Context, names []string, frameworks []model.Framework) ([]model.Row, error) {
	rows := make([]model.Row, 0, len(names))
	for _, name := range names {
		row := model.Row{CriterionName: name, Cells: make([]model.Cell, len(frameworks))}
		for i, fw := range frameworks {
			cell, err := b.cell(ctx, fw.ID, name)
			if err != nil {
				return nil, err
			}
			row.Cells[i] = cell
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (b *MatrixBuilder) cell(ctx context.Context, frameworkID int64, name string) (model.Cell, error) {
	c, err := b.data.CriterionByName(ctx, frameworkID, normalize.Loose(name))
	if err != nil {
		return model.Cell{}, fmt.Errorf("lookup %q in framework %d: %w", name, frameworkID, err)
	}
	if c == nil {
		return model.Cell{Present: false}, nil
	}

	defs, err := b.data.DefinitionsFor(ctx, c.ID)
	if err != nil {
		return model.Cell{}, fmt.Errorf("definitions for criterion %d: %w", c.ID, err)
	}
	texts := make([]string, 0, len(defs))
	for _, d := range defs {
		texts = append(texts, d.DefinitionText)
	}

	return model.Cell{
		Present:     true,
		Description: c.Description,
		Category:    c.Category,
		Definitions: normalize.CollapseDefinitions(texts),
	}, nil
}
