package enhance

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/ppiankov/kgframe/internal/llm"
	"github.com/ppiankov/kgframe/internal/logging"
	"github.com/ppiankov/kgframe/internal/model"
)

// fakeProvider answers by inspecting the prompt
type fakeProvider struct {
	mu     sync.Mutex
	calls  []llm.CompletionRequest
	answer func(req llm.CompletionRequest) (string, error)
}

func (p *fakeProvider) Name() string                         { return "fake" }
func (p *fakeProvider) IsAvailable(ctx context.Context) bool { return true }
func (p *fakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()
	text, err := p.answer(req)
	if err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{Text: text}, nil
}

func (p *fakeProvider) count(substr string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if strings.Contains(c.Prompt, substr) {
			n++
		}
	}
	return n
}

// fakeEmbedder maps a criterion name (the text before ". ") to a vector
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (e *fakeEmbedder) Name() string                       { return "fake-embed" }
func (e *fakeEmbedder) Available(ctx context.Context) bool { return true }
func (e *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		name := strings.SplitN(t, ". ", 2)[0]
		out[i] = e.vectors[name]
	}
	return out, nil
}

func year(y int) *int { return &y }

func testLogger() *log.Logger { return logging.WithPrefix("test") }

func testFrameworks() []model.Framework {
	return []model.Framework{
		{ID: 2, Name: "Beta", Year: year(2021)},
		{ID: 1, Name: "Alpha", Year: year(2019)},
	}
}

func testRows() []model.Row {
	return []model.Row{
		{CriterionName: "Accuracy", Cells: []model.Cell{
			{Present: true, Description: "Facts are correct", Definitions: []string{"Data is correct."}},
			{Present: true, Description: "Correctness of triples", Category: "Intrinsic"},
		}},
		{CriterionName: "Completeness", Cells: []model.Cell{
			{Present: false},
			{Present: true, Description: "No missing facts"},
		}},
		{CriterionName: "Timeliness", Cells: []model.Cell{
			{Present: true, Definitions: []string{"Data is current"}},
			{Present: false},
		}},
	}
}

const goodRewrite = "A framework-specific description that is clearly long enough."

func generative(answer func(req llm.CompletionRequest) (string, error)) (*Orchestrator, *fakeProvider) {
	p := &fakeProvider{answer: answer}
	return New(&llm.Backend{Name: "fake", Generator: p}, 3), p
}

func TestEnhance_NoBackend(t *testing.T) {
	rows := testRows()
	want := model.CloneRows(rows)

	for name, backend := range map[string]*llm.Backend{"nil": nil, "none": llm.NoBackend()} {
		t.Run(name, func(t *testing.T) {
			res := New(backend, 2).Enhance(context.Background(), testFrameworks(), rows)
			if res.Enhanced {
				t.Error("expected enhanced=false")
			}
			if res.Error != ErrNoBackend.Error() {
				t.Errorf("error = %q, want %q", res.Error, ErrNoBackend)
			}
			if !reflect.DeepEqual(res.Rows, want) {
				t.Errorf("rows changed:\n got %+v\nwant %+v", res.Rows, want)
			}
			if len(res.SemanticSimilarities) != 0 || len(res.Summaries) != 0 || len(res.Groups) != 0 || len(res.Insights) != 0 {
				t.Errorf("expected empty maps, got %+v", res)
			}
			if res.SemanticSimilarities == nil || res.Summaries == nil || res.Groups == nil {
				t.Error("expected non-nil maps")
			}
		})
	}
}

func TestEnhance_OneCellFails(t *testing.T) {
	o, _ := generative(func(req llm.CompletionRequest) (string, error) {
		if strings.Contains(req.Prompt, `criterion "Accuracy" SPECIFICALLY`) && strings.Contains(req.Prompt, `framework "Alpha"`) {
			return "", errors.New("503 model loading")
		}
		return goodRewrite, nil
	})

	rows := testRows()
	res := o.Enhance(context.Background(), testFrameworks(), rows)
	if !res.Enhanced {
		t.Fatalf("expected enhanced=true, error %q", res.Error)
	}
	if res.RunID == "" {
		t.Error("expected a run id")
	}

	want := map[cellKey]bool{
		{"Accuracy", 0}:     true,
		{"Accuracy", 1}:     false,
		{"Completeness", 0}: false,
		{"Completeness", 1}: true,
		{"Timeliness", 0}:   true,
		{"Timeliness", 1}:   false,
	}
	for _, row := range res.Rows {
		for j, c := range row.Cells {
			k := cellKey{row.CriterionName, j}
			if c.HasLLMEnhancement != want[k] {
				t.Errorf("%v: has_llm_enhancement = %v, want %v", k, c.HasLLMEnhancement, want[k])
			}
			if c.HasLLMEnhancement && c.LLMDescription != goodRewrite {
				t.Errorf("%v: unexpected description %q", k, c.LLMDescription)
			}
		}
	}

	if rows[0].Cells[0].HasLLMEnhancement {
		t.Error("input rows must not be modified")
	}
}

func TestEnhance_FallbackModel(t *testing.T) {
	p := &fakeProvider{answer: func(req llm.CompletionRequest) (string, error) {
		if !strings.Contains(req.Prompt, "SPECIFICALLY") {
			return "", errors.New("skip")
		}
		if req.Model == "small-model" {
			return goodRewrite, nil
		}
		return "too short", nil
	}}
	o := New(&llm.Backend{Name: "fake", Generator: p, FallbackModel: "small-model"}, 1)

	res := o.Enhance(context.Background(), testFrameworks(), testRows())
	if !res.Rows[0].Cells[0].HasLLMEnhancement {
		t.Error("expected fallback model to rescue the rewrite")
	}
	if got := p.count("SPECIFICALLY"); got != 8 {
		t.Errorf("expected one primary and one fallback call per present cell (8), got %d", got)
	}
}

func TestEnhance_ShortReplyIsFailure(t *testing.T) {
	o, _ := generative(func(req llm.CompletionRequest) (string, error) {
		return "Too short.", nil
	})
	res := o.Enhance(context.Background(), testFrameworks(), testRows())
	for _, row := range res.Rows {
		for _, c := range row.Cells {
			if c.HasLLMEnhancement {
				t.Fatalf("short reply accepted for %s", row.CriterionName)
			}
		}
	}
}

func TestEnhance_GenerativeSimilarityAndGroups(t *testing.T) {
	o, p := generative(func(req llm.CompletionRequest) (string, error) {
		switch {
		case strings.Contains(req.Prompt, "semantically similar or conceptually related"):
			return "Sure! Here you go:\n{\"Accuracy\": [\"Correctness\"], \"Completeness\": \"oops\"}\nDone.", nil
		case strings.Contains(req.Prompt, "Group these"):
			return "```json\n{\"Accuracy-related\": [\"Accuracy\", \"Timeliness\"]}\n```", nil
		case strings.Contains(req.Prompt, "Compare how different"):
			return "Both define accuracy as correctness.", nil
		}
		return goodRewrite, nil
	})

	res := o.Enhance(context.Background(), testFrameworks(), testRows())
	wantSims := map[string][]string{"Accuracy": {"Correctness"}}
	if !reflect.DeepEqual(res.SemanticSimilarities, wantSims) {
		t.Errorf("similarities = %v, want %v", res.SemanticSimilarities, wantSims)
	}
	wantGroups := map[string][]string{"Accuracy-related": {"Accuracy", "Timeliness"}}
	if !reflect.DeepEqual(res.Groups, wantGroups) {
		t.Errorf("groups = %v, want %v", res.Groups, wantGroups)
	}
	if res.Summaries["Accuracy"] != "Both define accuracy as correctness." {
		t.Errorf("unexpected summaries %v", res.Summaries)
	}
	if _, ok := res.Summaries["Completeness"]; ok {
		t.Error("single-framework rows must not be summarized")
	}
	if res.Insights["Completeness"] == "" || res.Insights["Timeliness"] == "" {
		t.Errorf("expected unique insights, got %v", res.Insights)
	}
	if res.OverallInsight == "" {
		t.Error("expected overall insight")
	}
	if p.count("Criteria unique to one framework: 2") != 1 {
		t.Error("expected overall prompt to carry the unique count")
	}
}

func TestEnhance_MalformedJSONYieldsEmpty(t *testing.T) {
	o, _ := generative(func(req llm.CompletionRequest) (string, error) {
		if strings.Contains(req.Prompt, "Return only valid JSON") {
			return "{\"Accuracy\": [\"Correctness\"", nil
		}
		return goodRewrite, nil
	})
	res := o.Enhance(context.Background(), testFrameworks(), testRows())
	if !res.Enhanced {
		t.Fatal("expected enhanced=true")
	}
	if len(res.SemanticSimilarities) != 0 || len(res.Groups) != 0 {
		t.Errorf("expected empty maps, got %v %v", res.SemanticSimilarities, res.Groups)
	}
}

func TestEnhance_SingleCriterionSkipsSimilarity(t *testing.T) {
	o, p := generative(func(req llm.CompletionRequest) (string, error) { return goodRewrite, nil })
	rows := testRows()[:1]
	res := o.Enhance(context.Background(), testFrameworks(), rows)
	if !res.Enhanced {
		t.Fatal("expected enhanced=true")
	}
	if p.count("semantically similar") != 0 || p.count("Group these") != 0 {
		t.Error("provider must not be asked to compare fewer than 2 criteria")
	}
}

func TestEnhance_UniqueInsightsCapped(t *testing.T) {
	var rows []model.Row
	for i := 0; i < 14; i++ {
		rows = append(rows, model.Row{
			CriterionName: "Unique " + string(rune('A'+i)),
			Cells:         []model.Cell{{Present: true, Description: "only here"}, {Present: false}},
		})
	}
	o, p := generative(func(req llm.CompletionRequest) (string, error) { return goodRewrite, nil })
	o.Enhance(context.Background(), testFrameworks(), rows)
	if got := p.count("appears only in"); got != maxUniqueInsights {
		t.Errorf("expected %d unique insight calls, got %d", maxUniqueInsights, got)
	}
}

func TestEnhance_PanicRecovered(t *testing.T) {
	o, _ := generative(func(req llm.CompletionRequest) (string, error) {
		if strings.Contains(req.Prompt, "Statistics:") {
			panic("provider bug")
		}
		return goodRewrite, nil
	})
	rows := testRows()
	res := o.Enhance(context.Background(), testFrameworks(), rows)
	if res.Enhanced {
		t.Error("expected enhanced=false after panic")
	}
	if !strings.Contains(res.Error, "provider bug") {
		t.Errorf("expected error text, got %q", res.Error)
	}
	if !reflect.DeepEqual(res.Rows, rows) {
		t.Error("expected unmodified rows after panic")
	}
}

func TestEnhance_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o, _ := generative(func(req llm.CompletionRequest) (string, error) { return goodRewrite, nil })
	res := o.Enhance(ctx, testFrameworks(), testRows())
	if res.Enhanced || res.Error == "" {
		t.Errorf("expected failed result on cancelled context, got %+v", res)
	}
}

func TestEnhance_EmbeddingPath(t *testing.T) {
	e := &fakeEmbedder{vectors: map[string][]float32{
		"Accuracy":     {1, 0, 0},
		"Completeness": {0.9, 0.1, 0},
		"Timeliness":   {0, 0, 1},
	}}
	o := New(&llm.Backend{Name: llm.BackendEmbedding, Embedder: e}, 2)

	res := o.Enhance(context.Background(), testFrameworks(), testRows())
	if !res.Enhanced {
		t.Fatalf("expected enhanced=true, error %q", res.Error)
	}
	wantSims := map[string][]string{
		"Accuracy":     {"Completeness"},
		"Completeness": {"Accuracy"},
	}
	if !reflect.DeepEqual(res.SemanticSimilarities, wantSims) {
		t.Errorf("similarities = %v, want %v", res.SemanticSimilarities, wantSims)
	}
	wantGroups := map[string][]string{"Group 1": {"Accuracy", "Completeness"}}
	if !reflect.DeepEqual(res.Groups, wantGroups) {
		t.Errorf("groups = %v, want %v", res.Groups, wantGroups)
	}
	for _, row := range res.Rows {
		for _, c := range row.Cells {
			if c.HasLLMEnhancement {
				t.Error("embedding-only backend must not rewrite cells")
			}
		}
	}
}

func TestEmbeddingSimilarities_TopThreeRanked(t *testing.T) {
	e := &fakeEmbedder{vectors: map[string][]float32{
		"A": {1, 0},
		"B": {0.99, 0.14},
		"C": {0.95, 0.31},
		"D": {0.9, 0.44},
		"E": {0.8, 0.6},
		"F": {0, 1},
	}}
	r := &run{o: New(&llm.Backend{Name: "e", Embedder: e}, 1), ctx: context.Background(), log: testLogger()}

	var criteria []criterionText
	for _, n := range []string{"A", "B", "C", "D", "E", "F"} {
		criteria = append(criteria, criterionText{Name: n})
	}
	sims := r.embeddingSimilarities(criteria)
	if got := sims["A"]; !reflect.DeepEqual(got, []string{"B", "C", "D"}) {
		t.Errorf("A: got %v, want [B C D]", got)
	}
	if _, ok := sims["F"]; ok {
		t.Errorf("F has no neighbour above the threshold, got %v", sims["F"])
	}
	for name, list := range sims {
		for _, other := range list {
			if other == name {
				t.Errorf("%s lists itself", name)
			}
		}
	}
}

func TestEnhance_EmbeddingFailureYieldsEmpty(t *testing.T) {
	o := New(&llm.Backend{Name: llm.BackendEmbedding, Embedder: &fakeEmbedder{err: errors.New("down")}}, 1)
	res := o.Enhance(context.Background(), testFrameworks(), testRows())
	if !res.Enhanced {
		t.Fatal("expected enhanced=true with empty step outputs")
	}
	if len(res.SemanticSimilarities) != 0 || len(res.Groups) != 0 {
		t.Errorf("expected empty maps, got %v %v", res.SemanticSimilarities, res.Groups)
	}
}

func TestCriteriaOf(t *testing.T) {
	got := criteriaOf(testRows())
	want := []criterionText{
		{Name: "Accuracy", Description: "Facts are correct"},
		{Name: "Completeness", Description: "No missing facts"},
		{Name: "Timeliness", Description: "Data is current"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Vollständigkeit", 5); got != "Volls" {
		t.Errorf("got %q", got)
	}
	if got := truncate("short", 100); got != "short" {
		t.Errorf("got %q", got)
	}
}
