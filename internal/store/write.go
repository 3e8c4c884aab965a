package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ppiankov/kgframe/internal/model"
)

// Snapshot loads the whole catalog as seen by the transaction
func (t *Tx) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	return snapshot(ctx, t.tx)
}

// UpdateFramework rewrites every descriptive field of f
func (t *Tx) UpdateFramework(ctx context.Context, f model.Framework) error {
	if f.Year != nil && !model.ValidYear(*f.Year) {
		return fmt.Errorf("framework %q: %w", f.Name, model.ErrInvalidYear)
	}
	_, err := t.tx.ExecContext(ctx, `UPDATE frameworks SET name = ?, authors = ?, year = ?, title = ?,
		description = ?, objectives = ?, methodology = ?, algorithm_used = ?, top_model = ?,
		accuracy = ?, advantages = ?, drawbacks = ?, source = ?, updated_at = ? WHERE id = ?`,
		f.Name, f.Authors, f.Year, f.Title, f.Description, f.Objectives, f.Methodology,
		f.AlgorithmUsed, f.TopModel, f.Accuracy, f.Advantages, f.Drawbacks, f.Source, now(), f.ID)
	if err != nil {
		return fmt.Errorf("update framework %d: %w", f.ID, err)
	}
	return nil
}

// DeleteFramework removes a framework; its criteria cascade
func (t *Tx) DeleteFramework(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM frameworks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete framework %d: %w", id, err)
	}
	return nil
}

// UpdateCriterion rewrites a criterion, including its owning framework
func (t *Tx) UpdateCriterion(ctx context.Context, c model.Criterion) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE criteria SET framework_id = ?, name = ?, description = ?,
		category = ?, sort_order = ?, updated_at = ? WHERE id = ?`,
		c.FrameworkID, c.Name, c.Description, c.Category, c.Order, now(), c.ID)
	if err != nil {
		return fmt.Errorf("update criterion %d: %w", c.ID, err)
	}
	return nil
}

// DeleteCriterion removes a criterion; its definitions cascade
func (t *Tx) DeleteCriterion(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM criteria WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete criterion %d: %w", id, err)
	}
	return nil
}

// MoveDefinition reattaches a definition to another criterion
func (t *Tx) MoveDefinition(ctx context.Context, definitionID, criterionID int64) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE definitions SET criterion_id = ?, updated_at = ? WHERE id = ?`,
		criterionID, now(), definitionID)
	if err != nil {
		return fmt.Errorf("move definition %d: %w", definitionID, err)
	}
	return nil
}

// DeleteDefinition removes one definition
func (t *Tx) DeleteDefinition(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM definitions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete definition %d: %w", id, err)
	}
	return nil
}

// ImportStats counts what an import created or touched
type ImportStats struct {
	FrameworksCreated  int `json:"frameworks_created"`
	FrameworksUpdated  int `json:"frameworks_updated"`
	CriteriaCreated    int `json:"criteria_created"`
	DefinitionsCreated int `json:"definitions_created"`
}

// Add accumulates other into s
func (s *ImportStats) Add(other ImportStats) {
	s.FrameworksCreated += other.FrameworksCreated
	s.FrameworksUpdated += other.FrameworksUpdated
	s.CriteriaCreated += other.CriteriaCreated
	s.DefinitionsCreated += other.DefinitionsCreated
}

// ImportFrameworks upserts records in one transaction. Frameworks match on
// exact name and only have their empty fields filled; criteria match on
// (framework, name); definitions match on exact text.
func (s *Store) ImportFrameworks(ctx context.Context, records []model.FrameworkRecord) (ImportStats, error) {
	var stats ImportStats
	err := s.WithTx(ctx, func(tx *Tx) error {
		for _, rec := range records {
			st, err := tx.importFramework(ctx, rec)
			if err != nil {
				return err
			}
			stats.Add(st)
		}
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}
	return stats, nil
}

// CreateFramework inserts one framework and returns it with its id set
func (s *Store) CreateFramework(ctx context.Context, f model.Framework) (*model.Framework, error) {
	var out *model.Framework
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.insertFramework(ctx, f)
		return err
	})
	return out, err
}

// CreateCriterion inserts one criterion with its definitions
func (s *Store) CreateCriterion(ctx context.Context, c model.Criterion, definitions ...string) (*model.Criterion, error) {
	var out *model.Criterion
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		out, err = tx.insertCriterion(ctx, c)
		if err != nil {
			return err
		}
		for _, text := range definitions {
			if err := tx.insertDefinition(ctx, out.ID, text); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

func (t *Tx) importFramework(ctx context.Context, rec model.FrameworkRecord) (ImportStats, error) {
	var stats ImportStats
	if rec.Name == "" {
		return stats, errors.New("import framework: empty name")
	}

	var existing model.Framework
	err := t.tx.GetContext(ctx, &existing, `SELECT `+frameworkColumns+` FROM frameworks f
		WHERE f.name = ? ORDER BY f.id LIMIT 1`, rec.Name)
	var fw *model.Framework
	switch {
	case errors.Is(err, sql.ErrNoRows):
		fw, err = t.insertFramework(ctx, rec.Framework)
		if err != nil {
			return stats, err
		}
		stats.FrameworksCreated++
	case err != nil:
		return stats, fmt.Errorf("find framework %q: %w", rec.Name, err)
	default:
		merged, changed := fillEmpty(existing, rec.Framework)
		if changed {
			if err := t.UpdateFramework(ctx, merged); err != nil {
				return stats, err
			}
			stats.FrameworksUpdated++
		}
		fw = &merged
	}

	for i, cr := range rec.Criteria {
		var c model.Criterion
		err := t.tx.GetContext(ctx, &c, `SELECT `+criterionColumns+` FROM criteria c
			WHERE c.framework_id = ? AND c.name = ?`, fw.ID, cr.Name)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			in := cr.Criterion
			in.FrameworkID = fw.ID
			if in.Order == 0 {
				in.Order = i
			}
			created, err := t.insertCriterion(ctx, in)
			if err != nil {
				return stats, err
			}
			c = *created
			stats.CriteriaCreated++
		case err != nil:
			return stats, fmt.Errorf("find criterion %q: %w", cr.Name, err)
		}

		for _, text := range cr.Definitions {
			var n int
			if err := t.tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM definitions
				WHERE criterion_id = ? AND definition_text = ?`, c.ID, text); err != nil {
				return stats, fmt.Errorf("find definition: %w", err)
			}
			if n > 0 {
				continue
			}
			if err := t.insertDefinition(ctx, c.ID, text); err != nil {
				return stats, err
			}
			stats.DefinitionsCreated++
		}
	}
	return stats, nil
}

func (t *Tx) insertFramework(ctx context.Context, f model.Framework) (*model.Framework, error) {
	if f.Year != nil && !model.ValidYear(*f.Year) {
		return nil, fmt.Errorf("framework %q: %w", f.Name, model.ErrInvalidYear)
	}
	ts := now()
	res, err := t.tx.ExecContext(ctx, `INSERT INTO frameworks (name, authors, year, title, description,
		objectives, methodology, algorithm_used, top_model, accuracy, advantages, drawbacks, source,
		created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.Name, f.Authors, f.Year, f.Title, f.Description, f.Objectives, f.Methodology,
		f.AlgorithmUsed, f.TopModel, f.Accuracy, f.Advantages, f.Drawbacks, f.Source, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("insert framework %q: %w", f.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("framework id: %w", err)
	}
	f.ID, f.CreatedAt, f.UpdatedAt = id, ts, ts
	return &f, nil
}

func (t *Tx) insertCriterion(ctx context.Context, c model.Criterion) (*model.Criterion, error) {
	ts := now()
	res, err := t.tx.ExecContext(ctx, `INSERT INTO criteria (framework_id, name, description, category,
		sort_order, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.FrameworkID, c.Name, c.Description, c.Category, c.Order, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("insert criterion %q: %w", c.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("criterion id: %w", err)
	}
	c.ID, c.CreatedAt, c.UpdatedAt = id, ts, ts
	return &c, nil
}

func (t *Tx) insertDefinition(ctx context.Context, criterionID int64, text string) error {
	ts := now()
	_, err := t.tx.ExecContext(ctx, `INSERT INTO definitions (criterion_id, definition_text, created_at, updated_at)
		VALUES (?, ?, ?, ?)`, criterionID, text, ts, ts)
	if err != nil {
		return fmt.Errorf("insert definition: %w", err)
	}
	return nil
}

// fillEmpty copies fields from src into the empty fields of dst
func fillEmpty(dst, src model.Framework) (model.Framework, bool) {
	changed := false
	fill := func(d *string, s string) {
		if *d == "" && s != "" {
			*d = s
			changed = true
		}
	}
	fill(&dst.Authors, src.Authors)
	fill(&dst.Title, src.Title)
	fill(&dst.Description, src.Description)
	fill(&dst.Objectives, src.Objectives)
	fill(&dst.Methodology, src.Methodology)
	fill(&dst.AlgorithmUsed, src.AlgorithmUsed)
	fill(&dst.TopModel, src.TopModel)
	fill(&dst.Accuracy, src.Accuracy)
	fill(&dst.Advantages, src.Advantages)
	fill(&dst.Drawbacks, src.Drawbacks)
	fill(&dst.Source, src.Source)
	if dst.Year == nil && src.Year != nil {
		y := *src.Year
		dst.Year = &y
		changed = true
	}
	return dst, changed
}
