package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ppiankov/kgframe/internal/model"
	"github.com/ppiankov/kgframe/internal/normalize"
)

const frameworkColumns = `f.id, f.name, f.authors, f.year, f.title, f.description, f.objectives,
	f.methodology, f.algorithm_used, f.top_model, f.accuracy, f.advantages, f.drawbacks,
	f.source, f.created_at, f.updated_at`

const criterionColumns = `c.id, c.framework_id, c.name, c.description, c.category, c.sort_order,
	c.created_at, c.updated_at`

const definitionColumns = `d.id, d.criterion_id, d.definition_text, d.notes, d.created_at, d.updated_at`

// display order: newest first, undated last, then by name
const frameworkOrder = `ORDER BY f.year IS NULL, f.year DESC, f.name ASC, f.id ASC`

// FrameworksByIDs returns the frameworks among ids that exist, in display order
func (s *Store) FrameworksByIDs(ctx context.Context, ids []int64) ([]model.Framework, error) {
	return frameworksByIDs(ctx, s.db, ids)
}

func frameworksByIDs(ctx context.Context, q sqlx.QueryerContext, ids []int64) ([]model.Framework, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+frameworkColumns+` FROM frameworks f WHERE f.id IN (?) `+frameworkOrder, ids)
	if err != nil {
		return nil, fmt.Errorf("build frameworks query: %w", err)
	}
	var out []model.Framework
	if err := sqlx.SelectContext(ctx, q, &out, query, args...); err != nil {
		return nil, fmt.Errorf("select frameworks: %w", err)
	}
	return out, nil
}

// CriterionNames lists the criterion names of the given frameworks
func (s *Store) CriterionNames(ctx context.Context, ids []int64) ([]model.CriterionRef, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT c.framework_id, c.name, c.sort_order FROM criteria c
		WHERE c.framework_id IN (?) ORDER BY c.framework_id, c.sort_order, c.name`, ids)
	if err != nil {
		return nil, fmt.Errorf("build criterion names query: %w", err)
	}
	var out []model.CriterionRef
	if err := sqlx.SelectContext(ctx, s.db, &out, query, args...); err != nil {
		return nil, fmt.Errorf("select criterion names: %w", err)
	}
	return out, nil
}

// CriteriaFor returns a framework's criteria ordered by (order, name)
func (s *Store) CriteriaFor(ctx context.Context, frameworkID int64) ([]model.Criterion, error) {
	var out []model.Criterion
	err := sqlx.SelectContext(ctx, s.db, &out, `SELECT `+criterionColumns+` FROM criteria c
		WHERE c.framework_id = ? ORDER BY c.sort_order, c.name, c.id`, frameworkID)
	if err != nil {
		return nil, fmt.Errorf("select criteria for framework %d: %w", frameworkID, err)
	}
	return out, nil
}

// CriterionByName finds the criterion of a framework whose name matches
// name after loose normalization. Lowest order wins. Returns nil, nil when
// nothing matches.
func (s *Store) CriterionByName(ctx context.Context, frameworkID int64, name string) (*model.Criterion, error) {
	criteria, err := s.CriteriaFor(ctx, frameworkID)
	if err != nil {
		return nil, err
	}
	key := normalize.Loose(name)
	for i := range criteria {
		if normalize.Loose(criteria[i].Name) == key {
			return &criteria[i], nil
		}
	}
	return nil, nil
}

// DefinitionsFor returns a criterion's definitions in insertion order
func (s *Store) DefinitionsFor(ctx context.Context, criterionID int64) ([]model.Definition, error) {
	var out []model.Definition
	err := sqlx.SelectContext(ctx, s.db, &out, `SELECT `+definitionColumns+` FROM definitions d
		WHERE d.criterion_id = ? ORDER BY d.id`, criterionID)
	if err != nil {
		return nil, fmt.Errorf("select definitions for criterion %d: %w", criterionID, err)
	}
	return out, nil
}

func (s *Store) definitionsForMany(ctx context.Context, criterionIDs []int64) (map[int64][]model.Definition, error) {
	out := make(map[int64][]model.Definition)
	if len(criterionIDs) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT `+definitionColumns+` FROM definitions d
		WHERE d.criterion_id IN (?) ORDER BY d.id`, criterionIDs)
	if err != nil {
		return nil, fmt.Errorf("build definitions query: %w", err)
	}
	var defs []model.Definition
	if err := sqlx.SelectContext(ctx, s.db, &defs, query, args...); err != nil {
		return nil, fmt.Errorf("select definitions: %w", err)
	}
	for _, d := range defs {
		out[d.CriterionID] = append(out[d.CriterionID], d)
	}
	return out, nil
}

// CriteriaCounts returns the number of criteria per framework id
func (s *Store) CriteriaCounts(ctx context.Context, ids []int64) (map[int64]int, error) {
	out := make(map[int64]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`SELECT framework_id, COUNT(*) AS n FROM criteria
		WHERE framework_id IN (?) GROUP BY framework_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("build counts query: %w", err)
	}
	var rows []struct {
		FrameworkID int64 `db:"framework_id"`
		N           int   `db:"n"`
	}
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count criteria: %w", err)
	}
	for _, r := range rows {
		out[r.FrameworkID] = r.N
	}
	return out, nil
}

// ListFrameworks returns every framework with its criteria count
func (s *Store) ListFrameworks(ctx context.Context) ([]model.FrameworkSummary, error) {
	var out []model.FrameworkSummary
	err := sqlx.SelectContext(ctx, s.db, &out, `SELECT `+frameworkColumns+`,
		(SELECT COUNT(*) FROM criteria c WHERE c.framework_id = f.id) AS criteria_count
		FROM frameworks f `+frameworkOrder)
	if err != nil {
		return nil, fmt.Errorf("list frameworks: %w", err)
	}
	return out, nil
}

// FrameworkDetail returns a framework with its criteria and definitions
func (s *Store) FrameworkDetail(ctx context.Context, id int64) (*model.FrameworkDetail, error) {
	var f model.Framework
	err := sqlx.GetContext(ctx, s.db, &f, `SELECT `+frameworkColumns+` FROM frameworks f WHERE f.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("framework %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get framework %d: %w", id, err)
	}

	criteria, err := s.CriteriaFor(ctx, id)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(criteria))
	for i, c := range criteria {
		ids[i] = c.ID
	}
	defs, err := s.definitionsForMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	detail := &model.FrameworkDetail{Framework: f, Criteria: make([]model.CriterionDetail, len(criteria))}
	for i, c := range criteria {
		detail.Criteria[i] = model.CriterionDetail{Criterion: c, Definitions: defs[c.ID]}
	}
	return detail, nil
}

// DistinctCriterionNames returns every stored criterion name once, sorted
func (s *Store) DistinctCriterionNames(ctx context.Context) ([]string, error) {
	var out []string
	if err := sqlx.SelectContext(ctx, s.db, &out, `SELECT DISTINCT name FROM criteria ORDER BY name`); err != nil {
		return nil, fmt.Errorf("select criterion names: %w", err)
	}
	return out, nil
}

type hitRow struct {
	model.Criterion
	FwName string `db:"fw_name"`
	FwYear *int   `db:"fw_year"`
}

func (s *Store) hits(ctx context.Context, where string, args ...interface{}) ([]model.SearchHit, error) {
	var rows []hitRow
	err := sqlx.SelectContext(ctx, s.db, &rows, `SELECT `+criterionColumns+`, f.name AS fw_name, f.year AS fw_year
		FROM criteria c JOIN frameworks f ON f.id = c.framework_id
		WHERE `+where+` ORDER BY c.name, f.name, c.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("select criteria: %w", err)
	}
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	defs, err := s.definitionsForMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.SearchHit, len(rows))
	for i, r := range rows {
		out[i] = model.SearchHit{
			Criterion:   r.Criterion,
			Framework:   model.Framework{ID: r.FrameworkID, Name: r.FwName, Year: r.FwYear},
			Definitions: defs[r.ID],
		}
	}
	return out, nil
}

// SearchCriteria matches criteria whose name or description contains q,
// case-insensitively, grouped by criterion name in name order.
func (s *Store) SearchCriteria(ctx context.Context, q string) ([]model.SearchGroup, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	hits, err := s.hits(ctx, `(lower(c.name) LIKE ? ESCAPE '\' OR lower(c.description) LIKE ? ESCAPE '\')`, pattern, pattern)
	if err != nil {
		return nil, err
	}

	var groups []model.SearchGroup
	index := make(map[string]int)
	for _, h := range hits {
		i, ok := index[h.Criterion.Name]
		if !ok {
			i = len(groups)
			index[h.Criterion.Name] = i
			groups = append(groups, model.SearchGroup{Name: h.Criterion.Name})
		}
		groups[i].Hits = append(groups[i].Hits, h)
	}
	return groups, nil
}

// DefinitionsByCriterionName returns every criterion named name
// (case-insensitive) across frameworks, with definitions.
func (s *Store) DefinitionsByCriterionName(ctx context.Context, name string) ([]model.SearchHit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	return s.hits(ctx, `lower(c.name) = ?`, strings.ToLower(name))
}

// ListCriteria returns a flat criterion listing, filtered on name when q is set
func (s *Store) ListCriteria(ctx context.Context, q string) ([]model.CriterionListing, error) {
	query := `SELECT c.id, c.name, c.framework_id, f.name AS framework_name
		FROM criteria c JOIN frameworks f ON f.id = c.framework_id`
	var args []interface{}
	if q = strings.TrimSpace(q); q != "" {
		query += ` WHERE lower(c.name) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(q))+"%")
	}
	query += ` ORDER BY c.name, f.name`

	var out []model.CriterionListing
	if err := sqlx.SelectContext(ctx, s.db, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list criteria: %w", err)
	}
	return out, nil
}

// CriterionWithFramework pairs a criterion with its owning framework
type CriterionWithFramework struct {
	Criterion model.Criterion
	Framework model.Framework
}

// CriteriaMatching returns criteria whose framework name and criterion name
// contain the given filters (empty filter matches everything).
func (s *Store) CriteriaMatching(ctx context.Context, frameworkFilter, criterionFilter string) ([]CriterionWithFramework, error) {
	frameworks, err := s.ListFrameworks(ctx)
	if err != nil {
		return nil, err
	}
	ff := strings.ToLower(strings.TrimSpace(frameworkFilter))
	cf := strings.ToLower(strings.TrimSpace(criterionFilter))

	var out []CriterionWithFramework
	for _, fs := range frameworks {
		if ff != "" && !strings.Contains(strings.ToLower(fs.Name), ff) {
			continue
		}
		criteria, err := s.CriteriaFor(ctx, fs.ID)
		if err != nil {
			return nil, err
		}
		for _, c := range criteria {
			if cf != "" && !strings.Contains(strings.ToLower(c.Name), cf) {
				continue
			}
			out = append(out, CriterionWithFramework{Criterion: c, Framework: fs.Framework})
		}
	}
	return out, nil
}

// SharedDescriptionCriteria returns the criteria whose exact (name,
// description) pair occurs in more than one row of the catalog, limited to
// non-empty descriptions shorter than maxLen bytes. Grouping spans the whole
// catalog; the filters only narrow which members are returned.
func (s *Store) SharedDescriptionCriteria(ctx context.Context, frameworkFilter, criterionFilter string, maxLen int) ([]CriterionWithFramework, error) {
	var pairs []struct {
		Name        string `db:"name"`
		Description string `db:"description"`
	}
	const query = `SELECT name, description FROM criteria
		WHERE TRIM(description) <> '' AND LENGTH(CAST(description AS BLOB)) < ?
		GROUP BY name, description HAVING COUNT(*) > 1`
	if err := sqlx.SelectContext(ctx, s.db, &pairs, query, maxLen); err != nil {
		return nil, fmt.Errorf("shared descriptions: %w", err)
	}
	if len(pairs) == 0 {
		return nil, nil
	}

	shared := make(map[[2]string]bool, len(pairs))
	for _, p := range pairs {
		shared[[2]string{p.Name, p.Description}] = true
	}

	all, err := s.CriteriaMatching(ctx, frameworkFilter, criterionFilter)
	if err != nil {
		return nil, err
	}
	var out []CriterionWithFramework
	for _, it := range all {
		if shared[[2]string{it.Criterion.Name, it.Criterion.Description}] {
			out = append(out, it)
		}
	}
	return out, nil
}

// UpdateCriterionDescription replaces one criterion's description
func (s *Store) UpdateCriterionDescription(ctx context.Context, id int64, description string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE criteria SET description = ?, updated_at = ? WHERE id = ?`,
		description, now(), id)
	if err != nil {
		return fmt.Errorf("update criterion %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("criterion %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// Snapshot loads the whole catalog
func (s *Store) Snapshot(ctx context.Context) (*model.Snapshot, error) {
	return snapshot(ctx, s.db)
}

func snapshot(ctx context.Context, q sqlx.QueryerContext) (*model.Snapshot, error) {
	snap := &model.Snapshot{}
	if err := sqlx.SelectContext(ctx, q, &snap.Frameworks, `SELECT `+frameworkColumns+` FROM frameworks f ORDER BY f.id`); err != nil {
		return nil, fmt.Errorf("snapshot frameworks: %w", err)
	}
	if err := sqlx.SelectContext(ctx, q, &snap.Criteria, `SELECT `+criterionColumns+` FROM criteria c ORDER BY c.id`); err != nil {
		return nil, fmt.Errorf("snapshot criteria: %w", err)
	}
	if err := sqlx.SelectContext(ctx, q, &snap.Definitions, `SELECT `+definitionColumns+` FROM definitions d ORDER BY d.id`); err != nil {
		return nil, fmt.Errorf("snapshot definitions: %w", err)
	}
	return snap, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
