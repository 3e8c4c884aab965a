package compare

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/ppiankov/kgframe/internal/model"
	"github.com/ppiankov/kgframe/internal/normalize"
)

// fakeData is an in-memory DataProvider
type fakeData struct {
	frameworks  []model.Framework
	criteria    []model.Criterion
	definitions []model.Definition
	failNames   bool
}

func (f *fakeData) FrameworksByIDs(_ context.Context, ids []int64) ([]model.Framework, error) {
	want := make(map[int64]bool)
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Framework
	for _, fw := range f.frameworks {
		if want[fw.ID] {
			out = append(out, fw)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.Year == nil && b.Year != nil:
			return false
		case a.Year != nil && b.Year == nil:
			return true
		case a.Year != nil && b.Year != nil && *a.Year != *b.Year:
			return *a.Year > *b.Year
		}
		return a.Name < b.Name
	})
	return out, nil
}

func (f *fakeData) CriterionNames(_ context.Context, ids []int64) ([]model.CriterionRef, error) {
	if f.failNames {
		return nil, errors.New("db down")
	}
	want := make(map[int64]bool)
	for _, id := range ids {
		want[id] = true
	}
	var out []model.CriterionRef
	for _, c := range f.criteria {
		if want[c.FrameworkID] {
			out = append(out, model.CriterionRef{FrameworkID: c.FrameworkID, Name: c.Name, Order: c.Order})
		}
	}
	return out, nil
}

func (f *fakeData) CriterionByName(_ context.Context, frameworkID int64, name string) (*model.Criterion, error) {
	key := normalize.Loose(name)
	for i := range f.criteria {
		c := f.criteria[i]
		if c.FrameworkID == frameworkID && normalize.Loose(c.Name) == key {
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeData) DefinitionsFor(_ context.Context, criterionID int64) ([]model.Definition, error) {
	var out []model.Definition
	for _, d := range f.definitions {
		if d.CriterionID == criterionID {
			out = append(out, d)
		}
	}
	return out, nil
}

func year(y int) *int { return &y }

// scenario: A (2019) has Completeness=X and Accuracy=Y; B (2021) has completeness=Z
func scenario() *fakeData {
	return &fakeData{
		frameworks: []model.Framework{
			{ID: 1, Name: "A", Year: year(2019)},
			{ID: 2, Name: "B", Year: year(2021)},
		},
		criteria: []model.Criterion{
			{ID: 10, FrameworkID: 1, Name: "Completeness", Description: "X", Order: 0},
			{ID: 11, FrameworkID: 1, Name: "Accuracy", Description: "Y", Order: 1},
			{ID: 20, FrameworkID: 2, Name: "completeness", Description: "Z", Order: 0},
		},
		definitions: []model.Definition{
			{ID: 100, CriterionID: 11, DefinitionText: "Data is correct."},
			{ID: 101, CriterionID: 11, DefinitionText: "data is correct"},
		},
	}
}

func indexOf(frameworks []model.Framework, name string) int {
	for i, fw := range frameworks {
		if fw.Name == name {
			return i
		}
	}
	return -1
}

func TestRegistry_CollapsesCaseAndWhitespace(t *testing.T) {
	data := &fakeData{
		frameworks: []model.Framework{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"}},
		criteria: []model.Criterion{
			{ID: 1, FrameworkID: 1, Name: "Accuracy"},
			{ID: 2, FrameworkID: 2, Name: " accuracy "},
			{ID: 3, FrameworkID: 3, Name: "ACCURACY"},
		},
	}

	names, err := NewRegistry(data).Names(context.Background(), []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"Accuracy"}) {
		t.Errorf("expected [Accuracy], got %v", names)
	}
}

func TestRegistry_FirstSeenFormFollowsInputOrder(t *testing.T) {
	data := &fakeData{
		criteria: []model.Criterion{
			{ID: 1, FrameworkID: 1, Name: "data  quality"},
			{ID: 2, FrameworkID: 2, Name: "Data Quality"},
		},
	}
	names, _ := NewRegistry(data).Names(context.Background(), []int64{2, 1})
	if !reflect.DeepEqual(names, []string{"Data Quality"}) {
		t.Errorf("expected framework 2's form, got %v", names)
	}

	names, _ = NewRegistry(data).Names(context.Background(), []int64{1, 2})
	if !reflect.DeepEqual(names, []string{"Data quality"}) {
		t.Errorf("expected framework 1's form capitalized, got %v", names)
	}
}

func TestRegistry_EmptyAndErrors(t *testing.T) {
	names, err := NewRegistry(&fakeData{failNames: true}).Names(context.Background(), nil)
	if err != nil || len(names) != 0 {
		t.Errorf("expected empty result without touching storage, got %v, %v", names, err)
	}

	_, err = NewRegistry(&fakeData{failNames: true}).Names(context.Background(), []int64{1})
	if err == nil {
		t.Error("expected storage error to propagate")
	}
}

func TestRegistry_SortedCaseInsensitive(t *testing.T) {
	data := &fakeData{
		criteria: []model.Criterion{
			{ID: 1, FrameworkID: 1, Name: "timeliness"},
			{ID: 2, FrameworkID: 1, Name: "Accuracy"},
			{ID: 3, FrameworkID: 1, Name: "believability"},
		},
	}
	names, _ := NewRegistry(data).Names(context.Background(), []int64{1})
	want := []string{"Accuracy", "Believability", "Timeliness"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("expected %v, got %v", want, names)
	}
}

func TestCompare_ConcreteScenario(t *testing.T) {
	svc := NewService(scenario(), nil)
	result, err := svc.Compare(context.Background(), []string{"1", "2"}, false)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	// display order is year DESC, so B (2021) precedes A (2019)
	if len(result.SelectedFrameworks) != 2 || result.SelectedFrameworks[0].Name != "B" {
		t.Fatalf("unexpected framework order: %+v", result.SelectedFrameworks)
	}
	a, b := indexOf(result.SelectedFrameworks, "A"), indexOf(result.SelectedFrameworks, "B")

	names := make([]string, len(result.Rows))
	for i, r := range result.Rows {
		names[i] = r.CriterionName
	}
	if !reflect.DeepEqual(names, []string{"Accuracy", "Completeness"}) {
		t.Fatalf("unexpected rows: %v", names)
	}

	accuracy, completeness := result.Rows[0], result.Rows[1]
	if c := completeness.Cells[a]; !c.Present || c.Description != "X" {
		t.Errorf("A/Completeness: %+v", c)
	}
	if c := completeness.Cells[b]; !c.Present || c.Description != "Z" {
		t.Errorf("B/Completeness should match despite case: %+v", c)
	}
	if c := accuracy.Cells[a]; !c.Present || c.Description != "Y" {
		t.Errorf("A/Accuracy: %+v", c)
	}
	if c := accuracy.Cells[b]; c.Present {
		t.Errorf("B/Accuracy should be absent: %+v", c)
	}

	if !reflect.DeepEqual(result.Similarities, []string{"Completeness"}) {
		t.Errorf("similarities: %v", result.Similarities)
	}
	wantDiff := []model.Difference{{Criterion: "Accuracy", InFrameworks: 1, Total: 2}}
	if !reflect.DeepEqual(result.Differences, wantDiff) {
		t.Errorf("differences: %+v", result.Differences)
	}
	if result.LLMEnhancement != nil {
		t.Error("expected no enhancement when LLM disabled")
	}
}

func TestCompare_FirstRuneWithoutCaseRoundTrip(t *testing.T) {
	data := &fakeData{
		frameworks: []model.Framework{
			{ID: 1, Name: "A", Year: year(2019)},
			{ID: 2, Name: "B", Year: year(2021)},
		},
		criteria: []model.Criterion{
			{ID: 10, FrameworkID: 1, Name: "ıntegrity", Description: "A view"},
			{ID: 20, FrameworkID: 2, Name: "ıntegrity", Description: "B view"},
		},
	}
	result, err := NewService(data, nil).Compare(context.Background(), []string{"1", "2"}, false)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(result.Rows))
	}
	if got := result.Rows[0].PresentCount(); got != 2 {
		t.Errorf("row %q present in %d frameworks, want 2", result.Rows[0].CriterionName, got)
	}
	if len(result.Similarities)+len(result.Differences) != len(result.Rows) {
		t.Errorf("similarities %v and differences %v do not partition %d rows",
			result.Similarities, result.Differences, len(result.Rows))
	}
}

func TestCompare_DefinitionsCollapsed(t *testing.T) {
	result, err := NewService(scenario(), nil).Compare(context.Background(), []string{"1"}, false)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	for _, row := range result.Rows {
		if row.CriterionName != "Accuracy" {
			continue
		}
		defs := row.Cells[0].Definitions
		if len(defs) != 1 || defs[0] != "Data is correct." {
			t.Errorf("expected one surviving definition, got %v", defs)
		}
	}
}

func TestCompare_MatrixShape(t *testing.T) {
	data := scenario()
	data.frameworks = append(data.frameworks, model.Framework{ID: 3, Name: "C"})
	data.criteria = append(data.criteria, model.Criterion{ID: 30, FrameworkID: 3, Name: "Timeliness"})

	svc := NewService(data, nil)
	ctx := context.Background()
	result, err := svc.Compare(ctx, []string{"3", "1", "2"}, false)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	names, _ := NewRegistry(data).Names(ctx, []int64{3, 1, 2})
	if len(result.Rows) != len(names) {
		t.Errorf("row count %d != registry length %d", len(result.Rows), len(names))
	}
	for _, row := range result.Rows {
		if len(row.Cells) != len(result.SelectedFrameworks) {
			t.Errorf("row %s has %d cells, want %d", row.CriterionName, len(row.Cells), len(result.SelectedFrameworks))
		}
	}
	if result.SelectedFrameworks[2].Name != "C" {
		t.Errorf("undated framework should sort last: %+v", result.SelectedFrameworks)
	}
	if len(result.Similarities)+len(result.Differences) != len(result.Rows) {
		t.Errorf("partition mismatch: %d + %d != %d", len(result.Similarities), len(result.Differences), len(result.Rows))
	}
	if len(result.FrameworkDetails) != 3 || result.FrameworkDetails[0].CriteriaCount != 1 {
		t.Errorf("unexpected framework details: %+v", result.FrameworkDetails)
	}
}

func TestCompare_Idempotent(t *testing.T) {
	svc := NewService(scenario(), nil)
	ctx := context.Background()
	first, err := svc.Compare(ctx, []string{"1", "2"}, false)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.Compare(ctx, []string{"1", "2"}, false)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("building twice produced different comparisons")
	}
}

func TestCompare_InvalidIDsDropped(t *testing.T) {
	svc := NewService(scenario(), nil)
	result, err := svc.Compare(context.Background(), []string{"abc", "-1", "0", "99", "1", "1"}, true)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(result.SelectedFrameworks) != 1 || result.SelectedFrameworks[0].ID != 1 {
		t.Errorf("expected only framework 1, got %+v", result.SelectedFrameworks)
	}
	if len(result.Similarities) != 0 || len(result.Differences) != 0 {
		t.Error("classification should be skipped for a single framework")
	}

	empty, err := svc.Compare(context.Background(), []string{"x", ""}, true)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(empty.Rows) != 0 || len(empty.SelectedFrameworks) != 0 || empty.LLMEnhancement != nil {
		t.Errorf("expected empty comparison, got %+v", empty)
	}
}

func TestParseIDs(t *testing.T) {
	got := ParseIDs([]string{"3", "1,2", " 2 ", "x", "-4", "3"})
	want := []int64{3, 1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseIDs = %v, want %v", got, want)
	}
}

func TestClassify_ZeroPresentRowIsSkipped(t *testing.T) {
	rows := []model.Row{
		{CriterionName: "Ghost", Cells: []model.Cell{{}, {}}},
		{CriterionName: "Shared", Cells: []model.Cell{{Present: true}, {Present: true}}},
	}
	sims, diffs := Classify(rows, 2)
	if !reflect.DeepEqual(sims, []string{"Shared"}) || len(diffs) != 0 {
		t.Errorf("unexpected classification: %v %v", sims, diffs)
	}

	sims, diffs = Classify(rows, 1)
	if len(sims) != 0 || len(diffs) != 0 {
		t.Error("expected no classification for N <= 1")
	}
}

type stubEnhancer struct{ calls int }

func (s *stubEnhancer) Enhance(_ context.Context, _ []model.Framework, rows []model.Row) *model.Enhancement {
	s.calls++
	return model.NewEnhancement("stub", rows)
}

func TestCompare_EnhancerInvokedOnlyWhenEnabled(t *testing.T) {
	enh := &stubEnhancer{}
	svc := NewService(scenario(), enh)
	ctx := context.Background()

	if r, _ := svc.Compare(ctx, []string{"1", "2"}, false); r.LLMEnhancement != nil || enh.calls != 0 {
		t.Error("enhancer should not run when disabled")
	}
	r, _ := svc.Compare(ctx, []string{"1", "2"}, true)
	if r.LLMEnhancement == nil || r.LLMEnhancement.Provider != "stub" || enh.calls != 1 {
		t.Errorf("expected enhancer to run once, got %+v (calls %d)", r.LLMEnhancement, enh.calls)
	}
}
