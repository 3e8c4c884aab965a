package model

// Cell is one framework's view of a criterion row
type Cell struct {
	Present           bool     `json:"present"`
	Description       string   `json:"description,omitempty"`
	Category          string   `json:"category,omitempty"`
	Definitions       []string `json:"definitions,omitempty"`
	LLMDescription    string   `json:"llm_description,omitempty"` // set only by enhancement
	HasLLMEnhancement bool     `json:"has_llm_enhancement"`       // true once LLMDescription is set
}

// Row is one canonical criterion name across every selected framework.
// Cells are index-aligned with Comparison.SelectedFrameworks.
type Row struct {
	CriterionName string `json:"criterion_name"`
	Cells         []Cell `json:"cells"`
}

// PresentCount returns how many frameworks carry the criterion
func (r Row) PresentCount() int {
	n := 0
	for _, c := range r.Cells {
		if c.Present {
			n++
		}
	}
	return n
}

// Difference marks a criterion present in some but not all frameworks
type Difference struct {
	Criterion    string `json:"criterion"`
	InFrameworks int    `json:"in_frameworks"`
	Total        int    `json:"total"`
}

// FrameworkDetails is the narrative side-by-side view of one framework
type FrameworkDetails struct {
	Framework
	CriteriaCount int `json:"criteria_count"`
}

// Comparison is the full result of comparing a set of frameworks
type Comparison struct {
	SelectedFrameworks []Framework        `json:"selected_frameworks"`
	FrameworkDetails   []FrameworkDetails `json:"framework_details"`
	Rows               []Row              `json:"rows"`
	Similarities       []string           `json:"similarities"`
	Differences        []Difference       `json:"differences"`
	LLMEnhancement     *Enhancement       `json:"llm_enhancement,omitempty"`
}

// Enhancement is the best-effort LLM add-on result.
// Rows is always safe to render: on failure it is the unmodified input.
type Enhancement struct {
	Enhanced             bool                `json:"enhanced"`
	Provider             string              `json:"provider"`
	RunID                string              `json:"run_id,omitempty"`
	Rows                 []Row               `json:"comparison_data"`
	SemanticSimilarities map[string][]string `json:"semantic_similarities"`
	Summaries            map[string]string   `json:"summaries"`
	Insights             map[string]string   `json:"insights"`
	Groups               map[string][]string `json:"groups"`
	OverallInsight       string              `json:"overall_insights,omitempty"`
	Error                string              `json:"error,omitempty"`
}

// NewEnhancement returns an empty, non-enhanced result over rows
func NewEnhancement(provider string, rows []Row) *Enhancement {
	return &Enhancement{
		Provider:             provider,
		Rows:                 rows,
		SemanticSimilarities: map[string][]string{},
		Summaries:            map[string]string{},
		Insights:             map[string]string{},
		Groups:               map[string][]string{},
	}
}

// CloneRows deep-copies rows so enhancement can never mutate its input
func CloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		cells := make([]Cell, len(r.Cells))
		for j, c := range r.Cells {
			if c.Definitions != nil {
				c.Definitions = append([]string(nil), c.Definitions...)
			}
			cells[j] = c
		}
		out[i] = Row{CriterionName: r.CriterionName, Cells: cells}
	}
	return out
}
